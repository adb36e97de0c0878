package models

// EventType discriminates monitor update events
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Terminal reports whether t ends the job's lifecycle.
func (t EventType) Terminal() bool {
	return t == EventCompleted || t == EventFailed || t == EventCancelled
}

// MonitorEvent is a tagged update pushed (or polled) for an active job
type MonitorEvent struct {
	Type         EventType `json:"type"`
	JobID        string    `json:"job_id"`
	Progress     float64   `json:"progress,omitempty"`      // set for EventProgress
	ErrorMessage string    `json:"error_message,omitempty"` // set for EventFailed
}
