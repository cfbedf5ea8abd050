package domain

import "github.com/google/uuid"

// Stream names
const (
	StreamForestDensityLoad     = "stream:forest_density:load"
	StreamForestDensityLoadDone = "stream:forest_density:load:done"
)

// LoadJobEvent - queued ingestion request
type LoadJobEvent struct {
	JobID   uuid.UUID   `json:"job_id"`
	Options LoadOptions `json:"options"`
}

// LoadDoneEvent - result of a queued ingestion
type LoadDoneEvent struct {
	JobID    uuid.UUID `json:"job_id"`
	Inserted int64     `json:"inserted"`
	Deleted  int64     `json:"deleted"`
	Skipped  int64     `json:"skipped"`
	Error    string    `json:"error,omitempty"`
}

// Succeeded reports whether the job finished without error.
func (e *LoadDoneEvent) Succeeded() bool {
	return e.Error == ""
}

// StreamMessage - raw message read from a Redis stream
type StreamMessage struct {
	ID   string
	Data string
}
