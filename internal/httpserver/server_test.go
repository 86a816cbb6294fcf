package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/storysync/internal/connectivity"
	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
	"github.com/MrSnakeDoc/storysync/internal/httpserver"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/store/memory"
	"github.com/MrSnakeDoc/storysync/internal/submission"
)

type fakeSubmitter struct {
	res           submission.Result
	err           error
	got           submission.Draft
	authenticated bool
}

func (f *fakeSubmitter) Submit(_ context.Context, d submission.Draft, authenticated bool) (submission.Result, error) {
	f.got = d
	f.authenticated = authenticated
	return f.res, f.err
}

type fakeSyncer struct {
	online    bool
	triggered bool
	story     *domain.Story
	err       error
}

func (f *fakeSyncer) Trigger() bool   { return f.triggered }
func (f *fakeSyncer) IsOnline() bool  { return f.online }
func (f *fakeSyncer) IsSyncing() bool { return false }
func (f *fakeSyncer) SyncOne(context.Context, string) (*domain.Story, error) {
	return f.story, f.err
}

type fakeStories struct {
	stories []domain.Story
	err     error
}

func (f *fakeStories) ListStories(context.Context, int, int, bool) ([]domain.Story, error) {
	return f.stories, f.err
}

func (f *fakeStories) GetStory(_ context.Context, id string) (*domain.Story, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.stories {
		if f.stories[i].ID == id {
			return &f.stories[i], nil
		}
	}
	return nil, &gateway.APIError{StatusCode: http.StatusNotFound, Message: "Story not found"}
}

type fixture struct {
	router    http.Handler
	store     *memory.Store
	submitter *fakeSubmitter
	syncer    *fakeSyncer
	stories   *fakeStories
	monitor   *connectivity.Monitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.New(),
		submitter: &fakeSubmitter{},
		syncer:    &fakeSyncer{online: true, triggered: true},
		stories:   &fakeStories{},
		monitor:   connectivity.NewMonitor(true),
	}
	d := deps.Deps{
		Logger:         logger.NewNop(),
		StartTime:      time.Now(),
		Version:        "test",
		AllowedCIDRS:   []string{"192.0.2.0/24"}, // httptest.NewRequest remote address
		RequestTimeout: 5 * time.Second,
		RateLimitBurst: 0,
		Store:          f.store,
		Submitter:      f.submitter,
		Syncer:         f.syncer,
		Connectivity:   f.monitor,
		Stories:        f.stories,
	}
	f.router = httpserver.NewRouter(logger.NewNop(), d)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func multipartDraft(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photo != nil {
		part, err := w.CreateFormFile("photo", "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestCreateStoryStatus(t *testing.T) {
	tests := []struct {
		name       string
		res        submission.Result
		err        error
		wantStatus int
	}{
		{"online", submission.Result{Outcome: submission.OutcomeOnline, Story: &domain.Story{ID: "s1"}}, nil, http.StatusCreated},
		{"offline", submission.Result{Outcome: submission.OutcomeOffline, TempID: "offline_1"}, nil, http.StatusAccepted},
		{"validation", submission.Result{}, domain.NewValidationError("description", "description is required"), http.StatusBadRequest},
		{"auth required", submission.Result{}, domain.ErrAuthRequired, http.StatusUnauthorized},
		{"guest offline", submission.Result{}, domain.ErrGuestOfflineUnsupported, http.StatusConflict},
		{"remote rejected", submission.Result{}, &domain.RemoteRejectedError{StatusCode: 413, Message: "too large"}, http.StatusUnprocessableEntity},
		{"storage", submission.Result{}, domain.NewStorageError("put pending", assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.submitter.res, f.submitter.err = tt.res, tt.err

			body, ct := multipartDraft(t, map[string]string{"description": "hello", "lat": "-6.2", "lon": "106.8"}, jpeg)
			req := httptest.NewRequest(http.MethodPost, "/api/stories", body)
			req.Header.Set("Content-Type", ct)

			rec := f.do(req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.err != nil {
				assert.Equal(t, true, decode(t, rec)["error"])
			}
		})
	}
}

func TestCreateStoryParsesDraft(t *testing.T) {
	f := newFixture(t)
	f.submitter.res = submission.Result{Outcome: submission.OutcomeOnline}

	body, ct := multipartDraft(t, map[string]string{"description": "hello", "lat": "-6.2", "lon": "106.8", "guest": "true"}, jpeg)
	req := httptest.NewRequest(http.MethodPost, "/api/stories", body)
	req.Header.Set("Content-Type", ct)

	rec := f.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hello", f.submitter.got.Description)
	assert.Equal(t, jpeg, f.submitter.got.Photo)
	require.NotNil(t, f.submitter.got.Lat)
	assert.InDelta(t, -6.2, *f.submitter.got.Lat, 1e-9)
	assert.False(t, f.submitter.authenticated, "guest=true submits unauthenticated")
}

func TestCreateStoryRemoteMessage(t *testing.T) {
	f := newFixture(t)
	f.submitter.err = &domain.RemoteRejectedError{StatusCode: 400, Message: "photo should be a valid image file"}

	body, ct := multipartDraft(t, map[string]string{"description": "x"}, jpeg)
	req := httptest.NewRequest(http.MethodPost, "/api/stories", body)
	req.Header.Set("Content-Type", ct)

	rec := f.do(req)
	assert.Equal(t, "photo should be a valid image file", decode(t, rec)["message"])
}

func TestCreateStoryBadInput(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)

	body, ct := multipartDraft(t, map[string]string{"description": "x", "lat": "north"}, jpeg)
	req = httptest.NewRequest(http.MethodPost, "/api/stories", body)
	req.Header.Set("Content-Type", ct)
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestForbiddenOutsideAllowedNetworks(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/pending", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, http.StatusForbidden, f.do(req).Code)

	// healthz stays public
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestPendingEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, f.store.PutPending(ctx, &domain.PendingStory{TempID: "offline_a", Description: "a", Photo: "data:image/jpeg;base64,/9j/", CreatedAt: now}))
	require.NoError(t, f.store.PutPending(ctx, &domain.PendingStory{TempID: "offline_b", Description: "b", Photo: "data:image/jpeg;base64,/9j/", CreatedAt: now.Add(time.Second)}))
	require.NoError(t, f.store.MarkPendingSynced(ctx, "offline_b", "srv-b"))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode(t, rec)["pending"].([]any)
	require.Len(t, all, 2)
	assert.NotContains(t, all[0].(map[string]any), "photo")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/pending?unsynced=true&photo=true", nil))
	unsynced := decode(t, rec)["pending"].([]any)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "offline_a", unsynced[0].(map[string]any)["tempId"])
	assert.Contains(t, unsynced[0].(map[string]any), "photo")

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/pending/offline_a", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok, err := f.store.GetPending(ctx, "offline_a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncPending(t *testing.T) {
	f := newFixture(t)
	f.syncer.story = &domain.Story{ID: "srv-1"}
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/pending/offline_a/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "offline_a", decode(t, rec)["tempId"])

	for _, tt := range []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAlreadySynced, http.StatusConflict},
		{domain.ErrSyncInProgress, http.StatusConflict},
		{domain.ErrNetworkUnavailable, http.StatusServiceUnavailable},
	} {
		f.syncer.err = tt.err
		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/pending/offline_a/sync", nil))
		assert.Equal(t, tt.want, rec.Code, "error %v", tt.err)
	}
}

func TestSyncTrigger(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusAccepted, f.do(httptest.NewRequest(http.MethodPost, "/api/sync", nil)).Code)

	f.syncer.triggered = false
	assert.Equal(t, http.StatusTooManyRequests, f.do(httptest.NewRequest(http.MethodPost, "/api/sync", nil)).Code)

	f.syncer.online = false
	assert.Equal(t, http.StatusServiceUnavailable, f.do(httptest.NewRequest(http.MethodPost, "/api/sync", nil)).Code)
}

func TestConnectivityEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/connectivity", strings.NewReader(`{"online":false}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.monitor.IsOnline())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/connectivity", nil))
	assert.Equal(t, false, decode(t, rec)["online"])

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/connectivity", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoriesProxy(t *testing.T) {
	f := newFixture(t)
	f.stories.stories = []domain.Story{{ID: "s1", Description: "one"}}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/stories?page=1&size=5&location=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["stories"], 1)

	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/stories?size=1000", nil)).Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/stories/missing", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	f.stories.err = &gateway.NetworkError{Op: "list stories", Err: assert.AnError}
	assert.Equal(t, http.StatusServiceUnavailable, f.do(httptest.NewRequest(http.MethodGet, "/api/stories", nil)).Code)
}

func TestGetStoryFallsBackToBookmark(t *testing.T) {
	f := newFixture(t)
	f.stories.err = &gateway.NetworkError{Op: "get story", Err: assert.AnError}
	require.NoError(t, f.store.PutBookmark(context.Background(), &domain.BookmarkedStory{Story: domain.Story{ID: "s1", Description: "kept"}}))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/stories/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bookmark", decode(t, rec)["source"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/stories/s2", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBookmarkEndpoints(t *testing.T) {
	f := newFixture(t)
	f.stories.stories = []domain.Story{{ID: "s2", Description: "remote"}}

	rec := f.do(httptest.NewRequest(http.MethodPut, "/api/bookmarks/s1", strings.NewReader(`{"id":"s1","description":"given"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodPut, "/api/bookmarks/s2", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodPut, "/api/bookmarks/s3", strings.NewReader(`{"id":"other"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil))
	assert.Len(t, decode(t, rec)["bookmarks"], 2)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/bookmarks/s2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remote", decode(t, rec)["bookmark"].(map[string]any)["description"])

	assert.Equal(t, http.StatusNoContent, f.do(httptest.NewRequest(http.MethodDelete, "/api/bookmarks/s2", nil)).Code)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/api/bookmarks/s2", nil)).Code)
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode(t, rec)
	assert.Equal(t, "test", health["version"])
	assert.Equal(t, "storysync", health["service"])

	f.monitor.SetOnline(false)
	rec = f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, false, body["online"])
}
