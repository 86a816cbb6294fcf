package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
)

type healthzResponse struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Uptime    float64 `json:"uptime_seconds"`
	Version   string  `json:"version,omitempty"`
	Commit    string  `json:"commit,omitempty"`
	BuildDate string  `json:"build_date,omitempty"`
	GoVersion string  `json:"go_version,omitempty"`
}

// Healthz answers liveness only. It touches neither the store nor the network.
func Healthz(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:    "ok",
			Service:   "storysync",
			Uptime:    now().Sub(d.StartTime).Seconds(),
			Version:   d.Version,
			Commit:    d.Commit,
			BuildDate: d.BuildDate,
			GoVersion: d.GoVersion,
		})
	}
}
