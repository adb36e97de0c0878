package models

import "time"

// SimulationJob represents a physics simulation submitted to the engine
type SimulationJob struct {
	ID           string                 `json:"id"`
	ModelID      string                 `json:"model_id"`
	Name         string                 `json:"name"`
	Kind         SimulationKind         `json:"kind"`
	Status       JobStatus              `json:"status"`
	Parameters   map[string]interface{} `json:"parameters"`
	Progress     float64                `json:"progress"` // 0-100, monotonic while running
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	Results      *SimulationResults     `json:"results,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// SimulationKind represents the type of simulation
type SimulationKind string

const (
	KindDropTest   SimulationKind = "drop_test"
	KindStressTest SimulationKind = "stress_test"
	KindMotion     SimulationKind = "motion"
	KindFluid      SimulationKind = "fluid"
)

// Kinds lists every supported simulation kind.
func Kinds() []SimulationKind {
	return []SimulationKind{KindDropTest, KindStressTest, KindMotion, KindFluid}
}

// Valid reports whether k is a known simulation kind.
func (k SimulationKind) Valid() bool {
	switch k {
	case KindDropTest, KindStressTest, KindMotion, KindFluid:
		return true
	}
	return false
}

// JobStatus represents the current lifecycle state of a job
type JobStatus string

const (
	StatusIdle      JobStatus = "idle"
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether s is a terminal status. Terminal statuses are
// sticky: no further transitions are permitted without an explicit clear.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CreateRequest is the payload for submitting a new simulation
type CreateRequest struct {
	ModelID    string                 `json:"model_id"`
	Name       string                 `json:"name"`
	Kind       SimulationKind         `json:"kind"`
	Parameters map[string]interface{} `json:"parameters"`
}

// JobSummary is the non-sensitive slice of a job persisted locally for
// warm-start of the history view
type JobSummary struct {
	ID          string         `json:"id"`
	Kind        SimulationKind `json:"kind"`
	Status      JobStatus      `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Template is a reusable parameter preset offered by the engine
type Template struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Kind        SimulationKind         `json:"kind"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// HistoryFilters narrows a history listing
type HistoryFilters struct {
	Limit  int
	Offset int
	Status JobStatus
	Kind   SimulationKind
}

// Comparison is the engine's side-by-side report for a set of completed jobs
type Comparison struct {
	JobIDs  []string                      `json:"job_ids"`
	Metrics map[string]map[string]float64 `json:"metrics"` // job id -> metric -> value
	Summary string                        `json:"summary,omitempty"`
}
