package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/logger"
)

// Sync requests an asynchronous drain of the offline queue.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Syncer.IsOnline() {
			d.Logger.Info("manual sync refused while offline",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: true, Message: "offline, sync deferred"})
			return
		}

		if !d.Syncer.Trigger() {
			d.Logger.Warn("sync already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: true, Message: "sync already in progress, please wait"})
			return
		}

		d.Logger.Info("manual sync triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, messageResponse{Message: "sync triggered"})
	}
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

type connectivityResponse struct {
	Online  bool `json:"online"`
	Syncing bool `json:"syncing"`
}

func GetConnectivity(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := connectivityResponse{Online: d.Connectivity.IsOnline()}
		if d.Syncer != nil {
			resp.Syncing = d.Syncer.IsSyncing()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// SetConnectivity lets the UI forward its online/offline notifications.
func SetConnectivity(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectivityRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Online == nil {
			writeError(w, d, r, domain.NewValidationError("online", "body must be {\"online\": true|false}"))
			return
		}

		if d.Connectivity.SetOnline(*req.Online) {
			d.Logger.Info("connectivity reported by client", logger.Bool("online", *req.Online))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
