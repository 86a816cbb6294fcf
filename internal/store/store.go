// Package store defines the durable local store that exclusively owns the
// pending-stories and bookmarked-stories collections.
package store

import (
	"context"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

// Collection names of the persisted layout.
const (
	PendingCollection  = "pending-stories"
	BookmarkCollection = "bookmarked-stories"
)

// PendingStore holds the offline queue. Every call is individually atomic.
type PendingStore interface {
	// PutPending inserts or fully overwrites the record keyed by TempID.
	PutPending(ctx context.Context, story *domain.PendingStory) error

	// GetPending returns the record; ok is false when it does not exist.
	GetPending(ctx context.Context, tempID string) (story *domain.PendingStory, ok bool, err error)

	// GetAllPending returns every record, oldest CreatedAt first.
	GetAllPending(ctx context.Context) ([]*domain.PendingStory, error)

	// GetUnsyncedPending returns the records with Synced == false.
	GetUnsyncedPending(ctx context.Context) ([]*domain.PendingStory, error)

	// MarkPendingSynced sets Synced, ServerID and SyncedAt. Unknown tempIDs
	// are a no-op, not an error.
	MarkPendingSynced(ctx context.Context, tempID, serverID string) error

	// RemovePending deletes the record. Absent records are not an error.
	RemovePending(ctx context.Context, tempID string) error
}

// BookmarkStore holds server-confirmed stories kept for offline reading.
type BookmarkStore interface {
	// PutBookmark fails with a validation error when the story has no ID.
	PutBookmark(ctx context.Context, story *domain.BookmarkedStory) error
	RemoveBookmark(ctx context.Context, id string) error
	GetBookmark(ctx context.Context, id string) (story *domain.BookmarkedStory, ok bool, err error)
	GetAllBookmarks(ctx context.Context) ([]*domain.BookmarkedStory, error)
	IsBookmarked(ctx context.Context, id string) (bool, error)
}

// Store is the full durable local store.
type Store interface {
	PendingStore
	BookmarkStore

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
