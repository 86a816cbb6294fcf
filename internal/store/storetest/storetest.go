// Package storetest holds the behavior every store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/store"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

var base = time.Date(2026, 5, 17, 8, 30, 0, 123456000, time.UTC)

// NewPending builds a valid unsynced record.
func NewPending(tempID string, createdAt time.Time) *domain.PendingStory {
	return &domain.PendingStory{
		TempID:      tempID,
		Description: "story " + tempID,
		Photo:       "data:image/jpeg;base64,/9j/4AAQSkZJRg==",
		Lat:         domain.Float(-6.2),
		Lon:         domain.Float(106.8),
		CreatedAt:   createdAt,
	}
}

// Run exercises the full store contract against one backend.
func Run(t *testing.T, open Opener) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"PutPendingRoundTrip", testPutPendingRoundTrip},
		{"PutPendingIsIdempotent", testPutPendingIsIdempotent},
		{"GetAllPendingOrder", testGetAllPendingOrder},
		{"GetUnsyncedPending", testGetUnsyncedPending},
		{"MarkPendingSynced", testMarkPendingSynced},
		{"MarkPendingSyncedUnknownIsNoop", testMarkPendingSyncedUnknown},
		{"RemovePending", testRemovePending},
		{"Bookmarks", testBookmarks},
		{"BookmarkRequiresID", testBookmarkRequiresID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testPutPendingRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := NewPending("offline_a", base)
	require.NoError(t, s.PutPending(ctx, in))

	got, ok, err := s.GetPending(ctx, "offline_a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.Photo, got.Photo)
	require.NotNil(t, got.Lat)
	require.NotNil(t, got.Lon)
	assert.InDelta(t, -6.2, *got.Lat, 1e-9)
	assert.InDelta(t, 106.8, *got.Lon, 1e-9)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt), "CreatedAt %v != %v", got.CreatedAt, in.CreatedAt)
	assert.False(t, got.Synced)
	assert.Empty(t, got.ServerID)
	assert.Nil(t, got.SyncedAt)

	_, ok, err = s.GetPending(ctx, "offline_missing")
	require.NoError(t, err)
	assert.False(t, ok)

	noLoc := NewPending("offline_noloc", base)
	noLoc.Lat, noLoc.Lon = nil, nil
	require.NoError(t, s.PutPending(ctx, noLoc))
	got, ok, err = s.GetPending(ctx, "offline_noloc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.HasLocation())
}

func testPutPendingIsIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPending("offline_dup", base)
	require.NoError(t, s.PutPending(ctx, p))
	require.NoError(t, s.PutPending(ctx, p))

	p.Description = "overwritten"
	require.NoError(t, s.PutPending(ctx, p))

	all, err := s.GetAllPending(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "overwritten", all[0].Description)
}

func testGetAllPendingOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutPending(ctx, NewPending("offline_c", base.Add(2*time.Minute))))
	require.NoError(t, s.PutPending(ctx, NewPending("offline_a", base)))
	require.NoError(t, s.PutPending(ctx, NewPending("offline_b", base.Add(time.Minute))))

	all, err := s.GetAllPending(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "offline_a", all[0].TempID)
	assert.Equal(t, "offline_b", all[1].TempID)
	assert.Equal(t, "offline_c", all[2].TempID)
}

func testGetUnsyncedPending(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutPending(ctx, NewPending("offline_1", base)))
	require.NoError(t, s.PutPending(ctx, NewPending("offline_2", base.Add(time.Second))))
	require.NoError(t, s.PutPending(ctx, NewPending("offline_3", base.Add(2*time.Second))))
	require.NoError(t, s.MarkPendingSynced(ctx, "offline_2", "story-2"))

	unsynced, err := s.GetUnsyncedPending(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 2)
	assert.Equal(t, "offline_1", unsynced[0].TempID)
	assert.Equal(t, "offline_3", unsynced[1].TempID)
}

func testMarkPendingSynced(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutPending(ctx, NewPending("offline_m", base)))

	require.NoError(t, s.MarkPendingSynced(ctx, "offline_m", "story-77"))
	first, ok, err := s.GetPending(ctx, "offline_m")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.Synced)
	assert.Equal(t, "story-77", first.ServerID)
	require.NotNil(t, first.SyncedAt)

	require.NoError(t, s.MarkPendingSynced(ctx, "offline_m", "story-77"))
	second, _, err := s.GetPending(ctx, "offline_m")
	require.NoError(t, err)
	assert.True(t, second.Synced)
	assert.Equal(t, first.ServerID, second.ServerID)
	require.NotNil(t, second.SyncedAt)
	assert.True(t, first.SyncedAt.Equal(*second.SyncedAt), "SyncedAt moved on the second mark")
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func testMarkPendingSyncedUnknown(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.MarkPendingSynced(ctx, "offline_ghost", "story-1"))

	all, err := s.GetAllPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testRemovePending(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutPending(ctx, NewPending("offline_r", base)))
	require.NoError(t, s.RemovePending(ctx, "offline_r"))
	require.NoError(t, s.RemovePending(ctx, "offline_r"))

	_, ok, err := s.GetPending(ctx, "offline_r")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testBookmarks(t *testing.T, s store.Store) {
	ctx := context.Background()
	older := &domain.BookmarkedStory{
		Story:        domain.Story{ID: "story-1", Name: "Dimas", Description: "Sunset", PhotoURL: "https://example.test/1.jpg"},
		BookmarkedAt: base,
	}
	newer := &domain.BookmarkedStory{
		Story:        domain.Story{ID: "story-2", Description: "Rain", Lat: domain.Float(1.5), Lon: domain.Float(2.5)},
		BookmarkedAt: base.Add(time.Hour),
	}
	require.NoError(t, s.PutBookmark(ctx, older))
	require.NoError(t, s.PutBookmark(ctx, newer))

	got, ok, err := s.GetBookmark(ctx, "story-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Sunset", got.Description)
	assert.Equal(t, "Dimas", got.Name)

	marked, err := s.IsBookmarked(ctx, "story-2")
	require.NoError(t, err)
	assert.True(t, marked)

	all, err := s.GetAllBookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "story-2", all[0].ID, "most recent bookmark first")
	require.NotNil(t, all[0].Lat)
	assert.InDelta(t, 1.5, *all[0].Lat, 1e-9)

	require.NoError(t, s.RemoveBookmark(ctx, "story-1"))
	require.NoError(t, s.RemoveBookmark(ctx, "story-1"))
	marked, err = s.IsBookmarked(ctx, "story-1")
	require.NoError(t, err)
	assert.False(t, marked)

	stamped := &domain.BookmarkedStory{Story: domain.Story{ID: "story-3"}}
	require.NoError(t, s.PutBookmark(ctx, stamped))
	got, ok, err = s.GetBookmark(ctx, "story-3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.BookmarkedAt.IsZero(), "BookmarkedAt stamped on put")
}

func testBookmarkRequiresID(t *testing.T, s store.Store) {
	err := s.PutBookmark(context.Background(), &domain.BookmarkedStory{Story: domain.Story{Description: "no id"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := s.GetAllBookmarks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
