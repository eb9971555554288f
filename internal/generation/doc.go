// Package generation defines the boundary between the processing pipeline and
// the external AI and image services it depends on: an LLM that analyzes entry
// text, an image model that illustrates it, an image host, and an image
// transformation service that composes share cards.
//
// Implementations live under internal/platform. Errors returned across this
// boundary are *ServiceError values wrapping one of the sentinels in errors.go.
package generation
