// Package pipeline wires collection, weight derivation and trip scoring
// into runs that are persisted and announced.
package pipeline

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageCollect   Stage = "collect"
	StageJoin      Stage = "join"
	StageCorrelate Stage = "correlate"
	StageScore     Stage = "score"
)

var (
	ErrNoValidItineraries  = errors.New("no valid itineraries")
	ErrMixedWalkStrategies = errors.New("records mix walk-distance strategies")
	ErrNoWeights           = errors.New("no weights supplied and no completed analysis run")
	ErrTooManyStops        = errors.New("too many stops")
)

// StageError names the stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage carried by err, or "".
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
