// Package notify publishes entry state changes to per-owner channels.
//
// Delivery is best-effort and at-most-once: there is no buffering, no replay and
// no retry. Publishers receive an error when a publish fails and are expected to
// log it and move on. Clients that miss an event recover by re-fetching the entry.
package notify
