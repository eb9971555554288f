// Package postgres provides the PostgreSQL implementation of store.EntryStore.
// Attempt histories and the analysis result are stored as JSONB; every write
// is a single field-scoped UPDATE so concurrent analysis and image jobs on the
// same entry never overwrite each other. Schema migrations are embedded and
// applied with goose.
package postgres
