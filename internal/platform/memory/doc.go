// Package memory provides an in-process implementation of store.EntryStore.
// It backs the "memory" database driver and is used throughout the test suite.
package memory
