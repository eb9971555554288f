// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the entry service, translating HTTP concerns to business operations,
// and streams an owner's real-time events over server-sent events.
package api
