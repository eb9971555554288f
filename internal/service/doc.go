// Package service contains the application use cases for journal entries.
// It orchestrates the entry store, the background task runner and the notifier
// to fulfill what the delivery mechanisms (HTTP API, CLI) ask for.
//
// Services receive their dependencies through constructor injection and depend
// only on interfaces from internal/store, internal/task and internal/notify,
// never on a specific storage or transport implementation.
//
// Error handling:
//   - Expected conditions are returned as sentinel errors (ErrEntryNotFound,
//     ErrInvalidEntry, ErrRetryNotAllowed) or as *ManualRetryDeniedError
//   - Unexpected failures are wrapped in *EntryServiceError
//   - The API layer maps these to HTTP status codes
package service
