// Package validation checks analysis payloads produced by the language model
// against the required-field contract of domain.AnalysisResult.
//
// The checks are structural only. A payload is rejected when it is not a JSON
// object, when any required field is missing or null, or when a field holds the
// wrong JSON kind. Unknown fields are ignored. Nothing is defaulted or coerced.
package validation
