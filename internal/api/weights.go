package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
)

type WeightsHandler struct {
	runner *pipeline.Runner
}

func NewWeightsHandler(runner *pipeline.Runner) *WeightsHandler {
	return &WeightsHandler{runner: runner}
}

// DeriveRequest supplies the dataset inline, by run, or not at all (the
// latest completed collect run is used).
type DeriveRequest struct {
	Records []itinerary.Record `json:"records,omitempty"`
	RunID   string             `json:"run_id,omitempty"`
}

// Derive correlates region features with vitality and returns the weights.
// POST /api/v1/weights/derive
func (h *WeightsHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	records := req.Records
	if len(records) == 0 {
		var err error
		switch {
		case req.RunID != "":
			id, perr := uuid.Parse(req.RunID)
			if perr != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run_id"})
				return
			}
			records, err = h.runner.RecordsForRun(r.Context(), id)
		default:
			records, err = h.runner.LatestDataset(r.Context())
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no dataset found"})
		return
	}

	analysis, err := h.runner.Analyzer.Analyze(r.Context(), pipeline.AnalyzeRequest{Records: records})
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
