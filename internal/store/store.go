package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

type RunKind string

const (
	KindCollect RunKind = "collect"
	KindAnalyze RunKind = "analyze"
	KindPlan    RunKind = "plan"
)

// Run is one pipeline execution and what it produced.
type Run struct {
	ID           uuid.UUID `json:"run_id"`
	Kind         RunKind   `json:"kind"`
	Status       RunStatus `json:"status"`
	Stage        string    `json:"stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	WalkStrategy string    `json:"walk_strategy,omitempty"`

	Regions      []string                      `json:"regions,omitempty"`
	Weights      map[string]float64            `json:"weights,omitempty"`
	Correlations map[string]float64            `json:"correlations,omitempty"`
	Features     map[string]map[string]float64 `json:"features,omitempty"`
	Vitality     map[string]float64            `json:"vitality,omitempty"`
	Stats        map[string]interface{}        `json:"stats,omitempty"`

	RecordCount int `json:"record_count"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type RunFilter struct {
	Status *RunStatus
	Kind   RunKind
	Limit  int
}

type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	UpdateRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	// LatestCompletedRun returns the newest completed run of kind, or nil.
	LatestCompletedRun(ctx context.Context, kind RunKind) (*Run, error)

	SaveRecords(ctx context.Context, runID uuid.UUID, records []itinerary.Record) error
	GetRecords(ctx context.Context, runID uuid.UUID) ([]itinerary.Record, error)

	Close() error
}
