package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/domain"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string, details map[string]string) {
	writeJSON(w, status, envelope{Success: false, Error: msg, Details: details})
}

// writeError maps store errors to status codes. Anything unrecognised is a
// 500 carrying the error text.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidInput):
		writeFail(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeFail(w, http.StatusInternalServerError, err.Error(), nil)
	}
}
