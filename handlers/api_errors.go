package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/camden-git/flockregistry/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// timestamp returns the ISO-8601 stamp carried on error and mutation
// responses
func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

// writeError translates a core error into the HTTP taxonomy: 400 for
// validation/media/mismatch, 404 for unknown records, 409 for duplicate
// ear tags and a generic 500 for everything else. internal details are
// logged, not leaked
func writeError(w http.ResponseWriter, err error) {
	if ve, ok := apperrors.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     "Validation failed",
			"details":   ve.Fields,
			"timestamp": timestamp(),
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "timestamp": timestamp()})
	case errors.Is(err, apperrors.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "timestamp": timestamp()})
	case errors.Is(err, apperrors.ErrUnsupportedMedia):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "timestamp": timestamp()})
	case errors.Is(err, apperrors.ErrTagMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "timestamp": timestamp()})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":     "Internal server error",
			"timestamp": timestamp(),
		})
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message, "timestamp": timestamp()})
}
