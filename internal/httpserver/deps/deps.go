package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/store"
	"github.com/MrSnakeDoc/storysync/internal/submission"
)

// Submitter creates stories, online or queued.
type Submitter interface {
	Submit(ctx context.Context, d submission.Draft, authenticated bool) (submission.Result, error)
}

// Syncer is the part of the sync engine the API drives.
type Syncer interface {
	Trigger() bool
	IsOnline() bool
	IsSyncing() bool
	SyncOne(ctx context.Context, tempID string) (*domain.Story, error)
}

// Connectivity is the runtime online belief.
type Connectivity interface {
	IsOnline() bool
	SetOnline(online bool) bool
}

// Stories reads the remote feed.
type Stories interface {
	ListStories(ctx context.Context, page, size int, location bool) ([]domain.Story, error)
	GetStory(ctx context.Context, id string) (*domain.Story, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS   []string         // clients allowed to call the API
	TrustProxy     bool             // true if running behind a trusted reverse proxy
	RateLimitBurst int              // submissions burst per client, 0 = unlimited
	RateLimitRate  int              // submissions refill per client per minute
	RequestTimeout time.Duration    // deadline of non-streaming requests
	MaxUploadBytes int64            // cap of a multipart submission

	Store        store.Store
	Submitter    Submitter
	Syncer       Syncer
	Connectivity Connectivity
	Stories      Stories
	Events       http.Handler // websocket event stream
}
