package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds to HTTP statuses. Anything unknown is a
// 500 and gets logged; its text is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		status, kind = http.StatusRequestEntityTooLarge, "payload_too_large"
	}

	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) && status != http.StatusInternalServerError {
		msg = de.Message
	}
	if status == http.StatusInternalServerError {
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}
