package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/logging"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Log.WithError(err).Error("httpapi: failed to encode response body")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFromError maps an abstract apperr.Kind to the status code the
// generic search handler uses; webhook routes use
// webhook.StatusForError instead since they have one extra status
// distinction (malformed signature -> 400).
func statusFromError(err error) int {
	return apperr.HTTPStatus(apperr.KindOf(err))
}
