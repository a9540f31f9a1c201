package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tpfi/internal/config"
)

type recordingClient struct {
	subjects []string
	err      error
}

func (r *recordingClient) Publish(ctx context.Context, ev Event) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	r.subjects = append(r.subjects, ev.Subject())
	return r.err
}
func (r *recordingClient) Close() {}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "tpfi.run.abc.started", RunStartedEvent{RunID: "abc"}.Subject())
	assert.Equal(t, "tpfi.run.abc.completed", RunCompletedEvent{RunID: "abc"}.Subject())
	assert.Equal(t, "tpfi.run.abc.failed", RunFailedEvent{RunID: "abc"}.Subject())
	assert.Equal(t, "tpfi.weights.derived", WeightsDerivedEvent{RunID: "abc"}.Subject())
	assert.Equal(t, []string{"tpfi.run.>", "tpfi.weights.derived"}, StreamSubjects())
}

func TestStreamConfig(t *testing.T) {
	sc, err := streamConfig(config.NATSConfig{Stream: "TPFI_EVENTS", StreamMaxAge: "720h"})
	require.NoError(t, err)
	assert.Equal(t, "TPFI_EVENTS", sc.Name)
	assert.Equal(t, 720*time.Hour, sc.MaxAge)
	assert.Equal(t, StreamSubjects(), sc.Subjects)

	sc, err = streamConfig(config.NATSConfig{Stream: "TPFI_TEST"})
	require.NoError(t, err)
	assert.Zero(t, sc.MaxAge)

	_, err = streamConfig(config.NATSConfig{Stream: "TPFI_EVENTS", StreamMaxAge: "a month"})
	assert.Error(t, err)

	_, err = streamConfig(config.NATSConfig{StreamMaxAge: "1h"})
	assert.Error(t, err)
}

func TestEmit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	Emit(ctx, nil, logger, WeightsDerivedEvent{})

	rc := &recordingClient{}
	Emit(ctx, rc, logger, WeightsDerivedEvent{RunID: "x"})
	assert.Equal(t, []string{SubjectWeightsDerived}, rc.subjects)

	failing := &recordingClient{err: errors.New("nats down")}
	Emit(ctx, failing, logger, RunFailedEvent{RunID: "x"})
	assert.Equal(t, []string{"tpfi.run.x.failed"}, failing.subjects)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	Emit(cancelled, rc, logger, RunStartedEvent{RunID: "y"})
	assert.Contains(t, rc.subjects, "tpfi.run.y.started", "a cancelled request still announces the run")
}
