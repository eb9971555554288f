// Package mongodb implements store.EntryStore on a MongoDB collection.
// Each entry is one document keyed by its UUID string. Status changes use
// $set, attempt records are appended with $push, and manual retry claims are
// a single conditional FindOneAndUpdate with $inc.
package mongodb
