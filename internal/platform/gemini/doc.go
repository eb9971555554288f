// Package gemini adapts Google's generative AI models to the generation
// ports. Analyzer asks a Gemini text model for the structured interpretation
// of a journal entry and returns the raw JSON payload for validation.
// ImageGenerator asks an Imagen model for an illustration.
//
// Both adapters classify failures into the generation error taxonomy:
// timeouts, rate limiting and 5xx responses wrap generation.ErrTransientFailure,
// safety blocks wrap generation.ErrContentBlocked, and empty or unusable
// responses wrap generation.ErrInvalidResponse. Every error is returned as a
// *generation.ServiceError. Neither adapter retries; the job pipeline owns retries.
package gemini
