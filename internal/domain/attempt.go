package domain

import "time"

// AttemptOutcome is the result of one attempt in an attempt chain.
type AttemptOutcome string

// Attempt outcomes
const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailed  AttemptOutcome = "failed"
)

// AttemptRecord is an immutable audit entry describing one attempt.
// Records are appended to an entry and never modified or removed.
type AttemptRecord struct {
	Attempt   int            `json:"attempt" bson:"attempt"`
	Status    AttemptOutcome `json:"status" bson:"status"`
	Error     *string        `json:"error" bson:"error"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

// NewSuccessRecord creates a record for a successful attempt.
func NewSuccessRecord(attempt int) AttemptRecord {
	return AttemptRecord{
		Attempt:   attempt,
		Status:    AttemptSuccess,
		Timestamp: time.Now().UTC(),
	}
}

// NewFailureRecord creates a record for a failed attempt carrying err's message.
func NewFailureRecord(attempt int, err error) AttemptRecord {
	rec := AttemptRecord{
		Attempt:   attempt,
		Status:    AttemptFailed,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		msg := err.Error()
		rec.Error = &msg
	}
	return rec
}

// CountFailed returns the number of failed records in records.
func CountFailed(records []AttemptRecord) int {
	n := 0
	for _, r := range records {
		if r.Status == AttemptFailed {
			n++
		}
	}
	return n
}

// LastError returns the error message of the most recent failed record, if any.
func LastError(records []AttemptRecord) string {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Status == AttemptFailed && records[i].Error != nil {
			return *records[i].Error
		}
	}
	return ""
}
