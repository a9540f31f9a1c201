package api

import (
	"encoding/json"
	"net/http"

	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writePipelineError reports a failed stage as 422 and anything else as 500.
func writePipelineError(w http.ResponseWriter, err error) {
	if stage := pipeline.StageOf(err); stage != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"stage": string(stage),
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
