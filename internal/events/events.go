package events

import "time"

// Event is a payload that knows the subject it is published on.
type Event interface {
	Subject() string
}

type RunStartedEvent struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Regions   []string  `json:"regions,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RunStartedEvent) Subject() string { return SubjectRunStarted(e.RunID) }

type RunCompletedEvent struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	RecordCount int       `json:"record_count"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e RunCompletedEvent) Subject() string { return SubjectRunCompleted(e.RunID) }

type RunFailedEvent struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Stage     string    `json:"stage"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RunFailedEvent) Subject() string { return SubjectRunFailed(e.RunID) }

type WeightsDerivedEvent struct {
	RunID        string             `json:"run_id"`
	Weights      map[string]float64 `json:"weights"`
	Correlations map[string]float64 `json:"correlations"`
	Regions      []string           `json:"regions"`
	Timestamp    time.Time          `json:"timestamp"`
}

func (e WeightsDerivedEvent) Subject() string { return SubjectWeightsDerived }
