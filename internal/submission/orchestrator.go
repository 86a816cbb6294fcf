// Package submission turns a user draft into either a live remote story or
// a queued offline record.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/photo"
	"github.com/MrSnakeDoc/storysync/internal/store"
)

// TempIDPrefix marks identifiers generated on the device.
const TempIDPrefix = "offline_"

const (
	MessageSavedOffline = "saved offline"
	messageCreated      = "Story created successfully"
)

// Gateway is the remote write path used for live submissions.
type Gateway interface {
	CreateStory(ctx context.Context, up gateway.Upload) (*gateway.CreateResult, error)
	CreateStoryGuest(ctx context.Context, up gateway.Upload) (*gateway.CreateResult, error)
}

// Connectivity is the online belief, which the orchestrator may lower.
type Connectivity interface {
	IsOnline() bool
	MarkOffline() bool
}

// Notifier receives the side-effect of a live authenticated submission.
type Notifier interface {
	StoryCreated(ctx context.Context, description string, story *domain.Story) error
}

type Outcome string

const (
	OutcomeOnline  Outcome = "online"
	OutcomeOffline Outcome = "offline"
)

// Draft is a story as the user composed it.
type Draft struct {
	Description string
	Photo       []byte
	PhotoType   string // sniffed when empty
	Lat, Lon    *float64
}

// Result of a successful submission. Story is set for OutcomeOnline when the
// server echoed it; TempID and Cause are set for OutcomeOffline.
type Result struct {
	Outcome Outcome       `json:"outcome"`
	Message string        `json:"message"`
	Story   *domain.Story `json:"story,omitempty"`
	TempID  string        `json:"tempId,omitempty"`
	Cause   error         `json:"-"`
}

type Options struct {
	// AllowGuest lets unauthenticated callers submit through the guest endpoint.
	AllowGuest bool
	// NewTempID overrides the identifier generator.
	NewTempID func() string
	Now       func() time.Time
}

type Orchestrator struct {
	gateway  Gateway
	conn     Connectivity
	store    store.PendingStore
	notifier Notifier
	logger   logger.Logger

	allowGuest bool
	newTempID  func() string
	now        func() time.Time
}

// New wires an orchestrator. notifier may be nil.
func New(gw Gateway, conn Connectivity, st store.PendingStore, notifier Notifier, log logger.Logger, opts Options) *Orchestrator {
	o := &Orchestrator{
		gateway:    gw,
		conn:       conn,
		store:      st,
		notifier:   notifier,
		logger:     log,
		allowGuest: opts.AllowGuest,
		newTempID:  opts.NewTempID,
		now:        opts.Now,
	}
	if o.newTempID == nil {
		o.newTempID = NewTempID
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// NewTempID returns offline_ followed by a time-ordered UUIDv7.
func NewTempID() string {
	return TempIDPrefix + uuid.Must(uuid.NewV7()).String()
}

// Submit validates the draft, tries the remote API when believed online and
// falls back to the offline queue on a network failure. Server rejections
// are returned as *domain.RemoteRejectedError and never queued.
func (o *Orchestrator) Submit(ctx context.Context, d Draft, authenticated bool) (Result, error) {
	d, err := normalize(d)
	if err != nil {
		return Result{}, err
	}
	if !authenticated && !o.allowGuest {
		return Result{}, domain.ErrAuthRequired
	}

	if o.conn.IsOnline() {
		res, err := o.submitOnline(ctx, d, authenticated)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrNetworkUnavailable) {
			return Result{}, err
		}
		if o.conn.MarkOffline() {
			o.logger.Warn("remote API unreachable, switching to offline", logger.Error(err))
		}
	}

	// Once the story goes to the queue it is written even if the caller has
	// stopped waiting.
	return o.saveOffline(context.WithoutCancel(ctx), d, authenticated)
}

func (o *Orchestrator) submitOnline(ctx context.Context, d Draft, authenticated bool) (Result, error) {
	up := gateway.Upload{
		Description: d.Description,
		Photo:       d.Photo,
		PhotoType:   d.PhotoType,
		Lat:         d.Lat,
		Lon:         d.Lon,
	}

	var (
		res *gateway.CreateResult
		err error
	)
	if authenticated {
		res, err = o.gateway.CreateStory(ctx, up)
	} else {
		res, err = o.gateway.CreateStoryGuest(ctx, up)
	}
	if err != nil {
		return Result{}, gateway.Classify(err)
	}

	if authenticated && o.notifier != nil {
		if err := o.notifier.StoryCreated(ctx, d.Description, res.Story); err != nil {
			o.logger.Warn("failed to send story notification", logger.Error(err))
		}
	}

	msg := res.Message
	if msg == "" {
		msg = messageCreated
	}
	return Result{Outcome: OutcomeOnline, Message: msg, Story: res.Story}, nil
}

func (o *Orchestrator) saveOffline(ctx context.Context, d Draft, authenticated bool) (Result, error) {
	if !authenticated {
		return Result{}, domain.ErrGuestOfflineUnsupported
	}

	p := &domain.PendingStory{
		TempID:      o.newTempID(),
		Description: d.Description,
		Photo:       photo.Encode(d.Photo, d.PhotoType),
		Lat:         d.Lat,
		Lon:         d.Lon,
		CreatedAt:   o.now().UTC(),
	}
	if err := o.store.PutPending(ctx, p); err != nil {
		if errors.Is(err, domain.ErrStorageFailure) {
			return Result{}, err
		}
		return Result{}, domain.NewStorageError("put pending", err)
	}

	o.logger.Info("story saved offline", logger.TempID(p.TempID))
	return Result{
		Outcome: OutcomeOffline,
		Message: MessageSavedOffline,
		TempID:  p.TempID,
		Cause:   domain.ErrNetworkUnavailable,
	}, nil
}

func normalize(d Draft) (Draft, error) {
	d.Description = norm.NFC.String(d.Description)
	if strings.TrimSpace(d.Description) == "" {
		return d, domain.NewValidationError("description", "description is required")
	}
	if len(d.Photo) == 0 {
		return d, domain.NewValidationError("photo", "photo is required")
	}
	if (d.Lat == nil) != (d.Lon == nil) {
		return d, domain.NewValidationError("location", "lat and lon must be given together")
	}
	if d.Lat != nil {
		if *d.Lat < -90 || *d.Lat > 90 {
			return d, domain.NewValidationError("lat", fmt.Sprintf("%v is outside [-90, 90]", *d.Lat))
		}
		if *d.Lon < -180 || *d.Lon > 180 {
			return d, domain.NewValidationError("lon", fmt.Sprintf("%v is outside [-180, 180]", *d.Lon))
		}
	}
	return d, nil
}
