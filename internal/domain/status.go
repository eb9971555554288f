package domain

import "fmt"

// ProcessingStatus represents the state of one background lifecycle on an entry.
type ProcessingStatus string

// Possible processing status values
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// IsValid reports whether s is one of the defined statuses.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further automatic transition can occur.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from s to next.
//
//	pending    -> processing
//	processing -> processing (retry), completed, failed
//	failed     -> pending (manual retry only)
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusPending
	default:
		return false
	}
}

// JobType identifies which lifecycle on an entry a job drives.
type JobType string

// Job types
const (
	JobTypeAnalysis JobType = "analysis"
	JobTypeImage    JobType = "image"
)

// JobTypes lists every job type in a stable order.
var JobTypes = []JobType{JobTypeAnalysis, JobTypeImage}

// ParseJobType converts a string into a JobType.
func ParseJobType(s string) (JobType, error) {
	switch JobType(s) {
	case JobTypeAnalysis, JobTypeImage:
		return JobType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidJobType, s)
	}
}
