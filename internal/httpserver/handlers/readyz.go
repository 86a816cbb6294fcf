package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
)

type componentStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Online     bool                       `json:"online"`
	Syncing    bool                       `json:"syncing"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports ready when the local store answers. Being offline is a
// normal operating mode and does not make the daemon unready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeStatus := checkStore(r.Context(), d)

		resp := readyzResponse{
			Ready:  storeStatus.OK,
			Online: d.Connectivity.IsOnline(),
			Components: map[string]componentStatus{
				"store": storeStatus,
			},
		}
		if d.Syncer != nil {
			resp.Syncing = d.Syncer.IsSyncing()
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	return componentStatus{OK: true}
}
