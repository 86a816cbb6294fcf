package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
)

type bookmarksResponse struct {
	Bookmarks []*domain.BookmarkedStory `json:"bookmarks"`
}

type bookmarkResponse struct {
	Bookmark *domain.BookmarkedStory `json:"bookmark"`
}

func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := d.Store.GetAllBookmarks(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmarksResponse{Bookmarks: all})
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		bm, ok, err := d.Store.GetBookmark(r.Context(), id)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if !ok {
			writeError(w, d, r, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound))
			return
		}
		writeJSON(w, http.StatusOK, bookmarkResponse{Bookmark: bm})
	}
}

// PutBookmark stores the story given in the body, or fetches it from the
// remote API when the body is empty.
func PutBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var story domain.Story
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&story)
		switch {
		case errors.Is(err, io.EOF):
			remote, gerr := d.Stories.GetStory(r.Context(), id)
			if gerr != nil {
				writeError(w, d, r, gateway.Classify(gerr))
				return
			}
			story = *remote
		case err != nil:
			writeError(w, d, r, domain.NewValidationError("body", "story JSON expected"))
			return
		}

		if story.ID == "" {
			story.ID = id
		}
		if story.ID != id {
			writeError(w, d, r, domain.NewValidationError("id", "body id does not match the path"))
			return
		}

		now := d.TimeNow
		if now == nil {
			now = time.Now
		}
		bm := &domain.BookmarkedStory{Story: story, BookmarkedAt: now().UTC()}
		if err := d.Store.PutBookmark(r.Context(), bm); err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmarkResponse{Bookmark: bm})
	}
}

func RemoveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.RemoveBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
