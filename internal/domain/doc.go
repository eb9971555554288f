// Package domain contains the core business entities, value objects, and
// domain logic of the application. It represents the heart of the system,
// independent of any specific infrastructure or delivery mechanism.
//
// The central entity is the journal Entry, which carries two independent
// processing lifecycles (analysis and image) tracked by ProcessingStatus and
// an append-only history of AttemptRecords.
package domain
