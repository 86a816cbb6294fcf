package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

// Store keeps both collections in process memory. It is durable only for
// the life of the process and serves tests and ephemeral runs.
type Store struct {
	mu        sync.RWMutex
	pending   map[string]*domain.PendingStory    // TempID -> record
	bookmarks map[string]*domain.BookmarkedStory // Story.ID -> snapshot

	// Now stamps SyncedAt and BookmarkedAt. Defaults to time.Now.
	Now func() time.Time
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		pending:   make(map[string]*domain.PendingStory),
		bookmarks: make(map[string]*domain.BookmarkedStory),
		Now:       time.Now,
	}
}

// PutPending adds or replaces a single record
func (s *Store) PutPending(_ context.Context, story *domain.PendingStory) error {
	if story == nil || story.TempID == "" {
		return domain.NewValidationError("tempId", "tempId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[story.TempID] = story.Clone()
	return nil
}

// GetPending retrieves a record by TempID
func (s *Store) GetPending(_ context.Context, tempID string) (*domain.PendingStory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[tempID]
	return p.Clone(), ok, nil
}

// GetAllPending returns all records, oldest first
func (s *Store) GetAllPending(_ context.Context) ([]*domain.PendingStory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PendingStory, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, domain.PendingByCreatedAt)
	return out, nil
}

// GetUnsyncedPending returns the records not yet confirmed
func (s *Store) GetUnsyncedPending(ctx context.Context) ([]*domain.PendingStory, error) {
	all, err := s.GetAllPending(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterUnsynced(all), nil
}

// MarkPendingSynced flags a record as confirmed by the server
func (s *Store) MarkPendingSynced(_ context.Context, tempID, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[tempID]; ok {
		p.MarkSynced(serverID, s.Now())
	}
	return nil
}

// RemovePending removes a record
func (s *Store) RemovePending(_ context.Context, tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, tempID)
	return nil
}

// PutBookmark adds or replaces a bookmark
func (s *Store) PutBookmark(_ context.Context, story *domain.BookmarkedStory) error {
	if err := story.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := story.Clone()
	if cp.BookmarkedAt.IsZero() {
		cp.BookmarkedAt = s.Now().UTC()
	}
	s.bookmarks[cp.ID] = cp
	return nil
}

// RemoveBookmark removes a bookmark
func (s *Store) RemoveBookmark(_ context.Context, id string) error {
	if id == "" {
		return domain.NewValidationError("id", "story ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bookmarks, id)
	return nil
}

// GetBookmark retrieves a bookmark by story ID
func (s *Store) GetBookmark(_ context.Context, id string) (*domain.BookmarkedStory, bool, error) {
	if id == "" {
		return nil, false, domain.NewValidationError("id", "story ID is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookmarks[id]
	return b.Clone(), ok, nil
}

// GetAllBookmarks returns all bookmarks, most recent first
func (s *Store) GetAllBookmarks(_ context.Context) ([]*domain.BookmarkedStory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.BookmarkedStory, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		out = append(out, b.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.BookmarkedStory) int {
		return b.BookmarkedAt.Compare(a.BookmarkedAt)
	})
	return out, nil
}

// IsBookmarked reports whether the story is kept offline
func (s *Store) IsBookmarked(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.GetBookmark(ctx, id)
	return ok, err
}

// PendingCount returns the number of queued records
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pending)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
