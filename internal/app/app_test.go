package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/storysync/internal/config"
	"github.com/MrSnakeDoc/storysync/internal/logger"
)

// remoteAPI fakes the story API. While down it drops every connection.
type remoteAPI struct {
	up      atomic.Bool
	created atomic.Int32
	srv     *httptest.Server
}

func newRemoteAPI(t *testing.T) *remoteAPI {
	t.Helper()
	api := &remoteAPI{}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !api.up.Load() {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/stories" {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":true,"message":"Missing authentication"}`)
				return
			}
			n := api.created.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"error":false,"message":"Story created successfully","data":{"story":{"id":"story-`+string(rune('0'+n))+`"}}}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		ShutdownTimeout: 2 * time.Second,
		LogLevel:        "error",
		APIBaseURL:      apiURL,
		APITimeout:      2 * time.Second,
		AuthToken:       "tok",
		AllowGuest:      true,
		StoreEngine:     "memory",
		ProbeURL:        apiURL,
		ProbeTimeout:    time.Second,
		AllowedCIDRS:    []string{"127.0.0.1/32", "::1/128"},
	}
}

func submitDraft(t *testing.T, base string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("description", "Sunset at the beach"))
	part, err := w.CreateFormFile("photo", "photo.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'})
	require.NoError(t, w.Close())

	resp, err := http.Post(base+"/api/stories", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestOfflineSubmissionSyncsWhenBackOnline(t *testing.T) {
	api := newRemoteAPI(t)

	a, err := New(context.Background(), testConfig(api.srv.URL), logger.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, a.Monitor().IsOnline(), "initial probe sees the API down")

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return a.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	// offline: the story is queued
	resp := submitDraft(t, base)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var queued struct {
		Outcome string `json:"outcome"`
		TempID  string `json:"tempId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&queued))
	assert.Equal(t, "offline", queued.Outcome)
	assert.True(t, strings.HasPrefix(queued.TempID, "offline_"))

	// back online: the UI reports it and the engine drains
	api.up.Store(true)
	resp, err = http.Post(base+"/api/connectivity", "application/json", strings.NewReader(`{"online":true}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	seen := map[string]map[string]any{}
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for seen["sync_complete"] == nil {
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		var env struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &env))
		seen[env.Type] = env.Data
	}
	require.Contains(t, seen, "story_synced")
	assert.Equal(t, queued.TempID, seen["story_synced"]["tempId"])
	assert.Equal(t, float64(1), seen["sync_complete"]["syncedCount"])
	assert.Equal(t, int32(1), api.created.Load())

	p, ok, err := a.Store().GetPending(context.Background(), queued.TempID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Synced)
	assert.Equal(t, "story-1", p.ServerID)

	// online: the next story goes straight through
	resp = submitDraft(t, base)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(2), api.created.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewFailsOnBadStore(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.StoreEngine = "sqlite"
	cfg.SQLitePath = t.TempDir() // a directory is not a database file

	_, err := New(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
}
