package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/logger"
)

// pendingView is a queued record without its photo payload unless asked.
type pendingView struct {
	TempID      string     `json:"tempId"`
	Description string     `json:"description"`
	Photo       string     `json:"photo,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Synced      bool       `json:"synced"`
	ServerID    string     `json:"serverId,omitempty"`
	SyncedAt    *time.Time `json:"syncedAt,omitempty"`
}

type pendingResponse struct {
	Pending []pendingView `json:"pending"`
}

// ListPending lists the queue. ?unsynced=true hides confirmed records and
// ?photo=true includes the photo data URLs.
func ListPending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		unsynced, _ := strconv.ParseBool(q.Get("unsynced"))
		withPhoto, _ := strconv.ParseBool(q.Get("photo"))

		var (
			records []*domain.PendingStory
			err     error
		)
		if unsynced {
			records, err = d.Store.GetUnsyncedPending(r.Context())
		} else {
			records, err = d.Store.GetAllPending(r.Context())
		}
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		out := make([]pendingView, 0, len(records))
		for _, p := range records {
			v := pendingView{
				TempID:      p.TempID,
				Description: p.Description,
				Lat:         p.Lat,
				Lon:         p.Lon,
				CreatedAt:   p.CreatedAt,
				Synced:      p.Synced,
				ServerID:    p.ServerID,
				SyncedAt:    p.SyncedAt,
			}
			if withPhoto {
				v.Photo = p.Photo
			}
			out = append(out, v)
		}
		writeJSON(w, http.StatusOK, pendingResponse{Pending: out})
	}
}

// RemovePending discards a queued record. Absent records are not an error.
func RemovePending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tempID := chi.URLParam(r, "tempID")
		if err := d.Store.RemovePending(r.Context(), tempID); err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("pending story removed", logger.TempID(tempID))
		w.WriteHeader(http.StatusNoContent)
	}
}

type syncedResponse struct {
	TempID string        `json:"tempId"`
	Story  *domain.Story `json:"story,omitempty"`
}

// SyncPending submits one queued record right away.
func SyncPending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tempID := chi.URLParam(r, "tempID")
		story, err := d.Syncer.SyncOne(r.Context(), tempID)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, syncedResponse{TempID: tempID, Story: story})
	}
}
