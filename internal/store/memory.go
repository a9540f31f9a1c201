package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

// MemoryStore keeps runs in process memory. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]*Run
	records map[uuid.UUID][]itinerary.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[uuid.UUID]*Run),
		records: make(map[uuid.UUID][]itinerary.Record),
	}
}

func (m *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = uuid.New()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.UpdatedAt = time.Now()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Run
	for _, r := range m.runs {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) LatestCompletedRun(ctx context.Context, kind RunKind) (*Run, error) {
	status := StatusCompleted
	runs, err := m.ListRuns(ctx, RunFilter{Status: &status, Kind: kind, Limit: 1})
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func (m *MemoryStore) SaveRecords(_ context.Context, runID uuid.UUID, records []itinerary.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[runID] = append(m.records[runID], records...)
	return nil
}

func (m *MemoryStore) GetRecords(_ context.Context, runID uuid.UUID) ([]itinerary.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]itinerary.Record(nil), m.records[runID]...), nil
}

func (m *MemoryStore) Close() error { return nil }
