package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/store/sqlite"
	"github.com/MrSnakeDoc/storysync/internal/version"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// env points the config at apiURL and a private sqlite file.
func env(t *testing.T, apiURL string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "stories.db")
	t.Setenv("STORYSYNC_API_BASE_URL", apiURL)
	t.Setenv("STORYSYNC_AUTH_TOKEN", "tok")
	t.Setenv("STORYSYNC_STORE_ENGINE", "sqlite")
	t.Setenv("STORYSYNC_SQLITE_PATH", dbPath)
	t.Setenv("STORYSYNC_CONFIG_FILE", "")
	t.Setenv("STORYSYNC_PRETTY_LOG", "false")
	t.Setenv("STORYSYNC_LOG_LEVEL", "error")
	return dbPath
}

func seed(t *testing.T, dbPath string, records ...*domain.PendingStory) {
	t.Helper()
	st, err := sqlite.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer st.Close()
	for _, p := range records {
		require.NoError(t, st.PutPending(context.Background(), p))
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "submit", "pending", "sync", "login", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "log-level", "format", "ephemeral"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSubmitFlags(t *testing.T) {
	cmd := NewSubmitCommand(&RootOptions{})
	for _, flag := range []string{"description", "photo", "lat", "lon", "guest"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "version", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info["version"])
}

func TestPendingListAndRemove(t *testing.T) {
	dbPath := env(t, "http://127.0.0.1:1")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	seed(t, dbPath,
		&domain.PendingStory{TempID: "offline_a", Description: "first", Photo: "data:image/jpeg;base64,/9j/", CreatedAt: at},
		&domain.PendingStory{TempID: "offline_b", Description: "second", Photo: "data:image/jpeg;base64,/9j/", CreatedAt: at.Add(time.Minute)},
	)

	out, err := execute(t, "pending", "list", "--format", "json")
	require.NoError(t, err)
	var rows []pendingRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "offline_a", rows[0].TempID)
	assert.Equal(t, "second", rows[1].Description)

	out, err = execute(t, "pending", "rm", "offline_a")
	require.NoError(t, err)
	assert.Equal(t, "removed offline_a\n", out)

	out, err = execute(t, "pending", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "offline_b")
	assert.NotContains(t, out, "offline_a")
}

func TestPendingListEmpty(t *testing.T) {
	env(t, "http://127.0.0.1:1")
	out, err := execute(t, "pending", "list", "--unsynced")
	require.NoError(t, err)
	assert.Equal(t, "no pending stories\n", out)
}

func TestSubmitOnlineThenSync(t *testing.T) {
	var created atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || r.Method == http.MethodGet {
			return
		}
		created.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"error":false,"message":"Story created successfully","story":{"id":"story-1"}}`)
	}))
	defer srv.Close()

	dbPath := env(t, srv.URL)
	photoPath := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(photoPath, jpeg, 0o600))

	out, err := execute(t, "submit", "-d", "Sunset", "-p", photoPath, "--lat", "-6.2", "--lon", "106.8")
	require.NoError(t, err)
	assert.Equal(t, "created story-1: Story created successfully\n", out)
	assert.Equal(t, int32(1), created.Load())

	seed(t, dbPath, &domain.PendingStory{
		TempID:      "offline_q",
		Description: "queued",
		Photo:       "data:image/jpeg;base64,/9j/4AAQ",
		CreatedAt:   time.Now().UTC(),
	})

	out, err = execute(t, "sync")
	require.NoError(t, err)
	assert.Equal(t, "synced 1 of 1\n", out)
	assert.Equal(t, int32(2), created.Load())
}

func TestSubmitOfflineQueues(t *testing.T) {
	dbPath := env(t, "http://127.0.0.1:1")
	t.Setenv("STORYSYNC_PROBE_TIMEOUT", "200ms")
	t.Setenv("STORYSYNC_API_TIMEOUT", "200ms")
	photoPath := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(photoPath, jpeg, 0o600))

	out, err := execute(t, "submit", "-d", "Offline", "-p", photoPath, "--format", "json")
	require.NoError(t, err)
	var res struct {
		Outcome string `json:"outcome"`
		TempID  string `json:"tempId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "offline", res.Outcome)

	st, err := sqlite.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer st.Close()
	p, ok, err := st.GetPending(context.Background(), res.TempID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Offline", p.Description)

	_, err = execute(t, "sync")
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)
}

func TestSubmitRequiresDescription(t *testing.T) {
	env(t, "http://127.0.0.1:1")
	_, err := execute(t, "submit", "-p", "x.jpg")
	require.Error(t, err)
}

func TestLoginNeedsTokenFile(t *testing.T) {
	env(t, "http://127.0.0.1:1")
	t.Setenv("STORYSYNC_TOKEN_FILE", "")
	_, err := execute(t, "login", "--email", "a@b.c", "--password", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORYSYNC_TOKEN_FILE")
}

func TestLoginSavesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":false,"message":"success","loginResult":{"userId":"user-1","name":"Arif","token":"jwt"}}`)
	}))
	defer srv.Close()

	env(t, srv.URL)
	tokenFile := filepath.Join(t.TempDir(), "token")
	t.Setenv("STORYSYNC_TOKEN_FILE", tokenFile)

	out, err := execute(t, "login", "--email", "a@b.c", "--password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "logged in as Arif\n", out)

	data, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "jwt")
}
