package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
	"github.com/MikeSquared-Agency/tpfi/internal/scoring"
)

type PlansHandler struct {
	runner  *pipeline.Runner
	rescale bool
	logger  *slog.Logger
}

func NewPlansHandler(runner *pipeline.Runner, rescale bool, logger *slog.Logger) *PlansHandler {
	return &PlansHandler{runner: runner, rescale: rescale, logger: logger}
}

// Create ranks every ordering of the requested stops.
// POST /api/v1/plans
func (h *PlansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pipeline.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.runner.Planner.Validate(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	plan, err := h.runner.Planner.Plan(r.Context(), req)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type ScoreRequest struct {
	Records []itinerary.Record   `json:"records"`
	Weights scoring.WeightVector `json:"weights"`
	Rescale *bool                `json:"rescale,omitempty"`
}

// Score ranks a caller-supplied candidate set. Nothing is persisted. Records
// measured with different walk strategies are rejected.
// POST /api/v1/itineraries/score
func (h *PlansHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	weights, err := req.Weights.Normalize()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	strategy, err := pipeline.WalkStrategyOf(req.Records)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"stage": string(pipeline.StageScore),
			"error": err.Error(),
		})
		return
	}
	rescale := h.rescale
	if req.Rescale != nil {
		rescale = *req.Rescale
	}

	ranking, err := scoring.NewFatigueScorer(weights, rescale, h.logger).Score(req.Records)
	if errors.Is(err, scoring.ErrNoCandidates) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"stage": string(pipeline.StageScore),
			"error": err.Error(),
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights":       weights,
		"walk_strategy": strategy,
		"ranking":       ranking,
		"frontier":      scoring.ComputeFrontier(ranking),
	})
}
