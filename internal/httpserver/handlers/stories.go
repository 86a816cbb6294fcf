package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/submission"
)

const (
	defaultMaxUpload = 10 << 20
	defaultPageSize  = 10
	maxPageSize      = 100
)

// CreateStory accepts a multipart draft: description, photo, lat, lon and
// guest. It answers 201 when the story went online and 202 when queued.
func CreateStory(d deps.Deps) http.HandlerFunc {
	maxBytes := d.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUpload
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		draft, guest, err := parseDraft(r, maxBytes)
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		res, err := d.Submitter.Submit(r.Context(), draft, !guest)
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		status := http.StatusCreated
		if res.Outcome == submission.OutcomeOffline {
			status = http.StatusAccepted
		}
		writeJSON(w, status, res)
	}
}

func parseDraft(r *http.Request, maxBytes int64) (submission.Draft, bool, error) {
	var d submission.Draft

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return d, false, domain.NewValidationError("photo", fmt.Sprintf("upload larger than %d bytes", maxBytes))
		}
		return d, false, domain.NewValidationError("form", "multipart form expected")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	d.Description = r.FormValue("description")

	if f, hdr, err := r.FormFile("photo"); err == nil {
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return d, false, domain.NewValidationError("photo", "unreadable photo")
		}
		d.Photo = data
		if ct := hdr.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
			d.PhotoType = ct
		}
	}

	var err error
	if d.Lat, err = parseCoord(r, "lat"); err != nil {
		return d, false, err
	}
	if d.Lon, err = parseCoord(r, "lon"); err != nil {
		return d, false, err
	}

	guest := false
	if v := r.FormValue("guest"); v != "" {
		if guest, err = strconv.ParseBool(v); err != nil {
			return d, false, domain.NewValidationError("guest", "must be a boolean")
		}
	}
	return d, guest, nil
}

func parseCoord(r *http.Request, field string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be a number")
	}
	return &f, nil
}

type storiesResponse struct {
	Stories []domain.Story `json:"stories"`
}

// ListStories proxies one page of the remote feed.
func ListStories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := intParam(q.Get("page"), 1)
		if err != nil || page < 1 {
			writeError(w, d, r, domain.NewValidationError("page", "must be a positive integer"))
			return
		}
		size, err := intParam(q.Get("size"), defaultPageSize)
		if err != nil || size < 1 || size > maxPageSize {
			writeError(w, d, r, domain.NewValidationError("size", fmt.Sprintf("must be between 1 and %d", maxPageSize)))
			return
		}
		location := q.Get("location") == "1" || q.Get("location") == "true"

		stories, err := d.Stories.ListStories(r.Context(), page, size, location)
		if err != nil {
			writeError(w, d, r, gateway.Classify(err))
			return
		}
		writeJSON(w, http.StatusOK, storiesResponse{Stories: stories})
	}
}

type storyResponse struct {
	Story  *domain.Story `json:"story"`
	Source string        `json:"source"`
}

// GetStory fetches one story, falling back to its bookmark while offline.
func GetStory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		story, err := d.Stories.GetStory(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, storyResponse{Story: story, Source: "remote"})
			return
		}

		err = gateway.Classify(err)
		if errors.Is(err, domain.ErrNetworkUnavailable) {
			bm, ok, berr := d.Store.GetBookmark(r.Context(), id)
			if berr != nil {
				d.Logger.Warn("bookmark fallback failed", logger.String("story_id", id), logger.Error(berr))
			}
			if ok {
				writeJSON(w, http.StatusOK, storyResponse{Story: &bm.Story, Source: "bookmark"})
				return
			}
		}
		writeError(w, d, r, err)
	}
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
