package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
)

type CollectHandler struct {
	runner *pipeline.Runner
}

func NewCollectHandler(runner *pipeline.Runner) *CollectHandler {
	return &CollectHandler{runner: runner}
}

// Collect rebuilds the itinerary dataset for every configured region.
// POST /api/v1/collect
func (h *CollectHandler) Collect(w http.ResponseWriter, r *http.Request) {
	id, records, stats, err := h.runner.Collect(r.Context())
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"run_id":       id,
		"record_count": len(records),
		"regions":      stats,
	})
}
