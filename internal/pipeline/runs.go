package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/tpfi/internal/events"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

// runRecorder persists run state transitions and announces them.
type runRecorder struct {
	store  store.Store
	events events.Client
	logger *slog.Logger
}

func (r *runRecorder) start(ctx context.Context, kind store.RunKind, run *store.Run) error {
	run.Kind = kind
	run.Status = store.StatusRunning
	if err := r.store.CreateRun(ctx, run); err != nil {
		return err
	}
	events.Emit(ctx, r.events, r.logger, events.RunStartedEvent{
		RunID:     run.ID.String(),
		Kind:      string(kind),
		Regions:   run.Regions,
		Timestamp: time.Now(),
	})
	return nil
}

func (r *runRecorder) fail(ctx context.Context, run *store.Run, err error) {
	now := time.Now()
	run.Status = store.StatusFailed
	run.Stage = string(StageOf(err))
	run.Error = err.Error()
	run.CompletedAt = &now
	if uerr := r.store.UpdateRun(ctx, run); uerr != nil {
		r.logger.Error("failed to record run failure", "run_id", run.ID, "error", uerr)
	}
	r.logger.Warn("run failed", "run_id", run.ID, "kind", run.Kind, "stage", run.Stage, "error", err)
	events.Emit(ctx, r.events, r.logger, events.RunFailedEvent{
		RunID:     run.ID.String(),
		Kind:      string(run.Kind),
		Stage:     run.Stage,
		Error:     run.Error,
		Timestamp: now,
	})
}

func (r *runRecorder) complete(ctx context.Context, run *store.Run) error {
	now := time.Now()
	run.Status = store.StatusCompleted
	run.CompletedAt = &now
	if err := r.store.UpdateRun(ctx, run); err != nil {
		return err
	}
	r.logger.Info("run completed", "run_id", run.ID, "kind", run.Kind, "records", run.RecordCount)
	events.Emit(ctx, r.events, r.logger, events.RunCompletedEvent{
		RunID:       run.ID.String(),
		Kind:        string(run.Kind),
		RecordCount: run.RecordCount,
		Timestamp:   now,
	})
	return nil
}

// finish stores the run's records and marks it completed. Either failure
// marks the run failed instead.
func (r *runRecorder) finish(ctx context.Context, run *store.Run, records []itinerary.Record) error {
	if err := r.store.SaveRecords(ctx, run.ID, records); err != nil {
		err = fmt.Errorf("save records: %w", err)
		r.fail(ctx, run, err)
		return err
	}
	if err := r.complete(ctx, run); err != nil {
		err = fmt.Errorf("complete run: %w", err)
		r.fail(ctx, run, err)
		return err
	}
	return nil
}
