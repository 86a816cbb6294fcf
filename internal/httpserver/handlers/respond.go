package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/logger"
)

type errorResponse struct {
	Error   bool   `json:"error"`
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

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGuestOfflineUnsupported),
		errors.Is(err, domain.ErrAlreadySynced),
		errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemoteRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the mapped status. Internal failures are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, d deps.Deps, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()

	var rr *domain.RemoteRejectedError
	switch {
	case errors.As(err, &rr):
		msg = rr.Message
	case status == http.StatusInternalServerError:
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		if errors.Is(err, domain.ErrStorageFailure) {
			msg = domain.ErrStorageFailure.Error()
		} else {
			msg = http.StatusText(status)
		}
	}

	writeJSON(w, status, errorResponse{Error: true, Message: msg})
}
