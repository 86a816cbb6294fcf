package events

import (
	"context"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

const (
	notificationTitle = "Story created"
	notificationBody  = 50
)

// SyncSource exposes the sync engine's lifecycle events.
type SyncSource interface {
	OnStorySynced(fn func(domain.StorySynced)) (cancel func())
	OnSyncComplete(fn func(domain.SyncComplete)) (cancel func())
}

// ConnectivitySource exposes connectivity transitions.
type ConnectivitySource interface {
	Subscribe(fn func(online bool)) (cancel func())
}

// StoryCreated publishes the notification of a live submission.
func (h *Hub) StoryCreated(_ context.Context, description string, story *domain.Story) error {
	h.Publish(TypeStoryCreated, NewStoryCreated(description, story))
	return nil
}

// NewStoryCreated builds the notification payload. story may be nil when the
// server did not echo it.
func NewStoryCreated(description string, story *domain.Story) domain.StoryCreated {
	n := domain.StoryCreated{
		Title: notificationTitle,
		Body:  truncate(description, notificationBody),
	}
	if story != nil && story.ID != "" {
		n.StoryID = story.ID
		n.URL = "/#/story/" + story.ID
	}
	return n
}

// Attach forwards engine and connectivity events to the hub. Either source
// may be nil. The returned func detaches both.
func (h *Hub) Attach(src SyncSource, conn ConnectivitySource) (detach func()) {
	var cancels []func()
	if src != nil {
		cancels = append(cancels,
			src.OnStorySynced(func(ev domain.StorySynced) { h.Publish(TypeStorySynced, ev) }),
			src.OnSyncComplete(func(ev domain.SyncComplete) { h.Publish(TypeSyncComplete, ev) }),
		)
	}
	if conn != nil {
		cancels = append(cancels, conn.Subscribe(func(online bool) {
			h.Publish(TypeConnectivity, domain.ConnectivityChanged{Online: online})
		}))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
