package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/resquick/portal/internal/service"
)

// jsonResponse is the envelope every JSON endpoint answers with.
type jsonResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to write json response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonResponse{Success: false, Message: message})
}

// inputMessage strips the ErrInvalidInput prefix so users see only the field problem.
func inputMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, service.ErrInvalidInput) {
		msg = strings.TrimPrefix(msg, service.ErrInvalidInput.Error()+": ")
	}
	return msg
}
