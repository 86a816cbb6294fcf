package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// PutBookmark stores a bookmark snapshot
func (s *Store) PutBookmark(ctx context.Context, story *domain.BookmarkedStory) error {
	if err := story.Validate(); err != nil {
		return err
	}
	cp := story.Clone()
	if cp.BookmarkedAt.IsZero() {
		cp.BookmarkedAt = s.now().UTC()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return domain.NewStorageError("put bookmark", fmt.Errorf("failed to marshal bookmark: %w", err))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(cp.ID), data, 0)
		pipe.SAdd(ctx, AllBookmarksKey(), cp.ID)
		return nil
	})
	if err != nil {
		return domain.NewStorageError("put bookmark", err)
	}
	return nil
}

// GetBookmark retrieves a bookmark by story ID
func (s *Store) GetBookmark(ctx context.Context, id string) (*domain.BookmarkedStory, bool, error) {
	if id == "" {
		return nil, false, domain.NewValidationError("id", "story ID is required")
	}
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("get bookmark", err)
	}

	var b domain.BookmarkedStory
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, false, domain.NewStorageError("get bookmark", fmt.Errorf("failed to unmarshal bookmark: %w", err))
	}
	return &b, true, nil
}

// GetAllBookmarks retrieves all bookmarks, most recent first
func (s *Store) GetAllBookmarks(ctx context.Context) ([]*domain.BookmarkedStory, error) {
	ids, err := s.client.SMembers(ctx, AllBookmarksKey()).Result()
	if err != nil {
		return nil, domain.NewStorageError("list bookmarks", fmt.Errorf("failed to get bookmark IDs: %w", err))
	}

	bookmarks := make([]*domain.BookmarkedStory, 0, len(ids))
	for _, id := range ids {
		b, ok, err := s.GetBookmark(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		bookmarks = append(bookmarks, b)
	}

	slices.SortFunc(bookmarks, func(a, b *domain.BookmarkedStory) int {
		return b.BookmarkedAt.Compare(a.BookmarkedAt)
	})
	return bookmarks, nil
}

// RemoveBookmark removes a bookmark and its index entry
func (s *Store) RemoveBookmark(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewValidationError("id", "story ID is required")
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BookmarkKey(id))
		pipe.SRem(ctx, AllBookmarksKey(), id)
		return nil
	})
	if err != nil {
		return domain.NewStorageError("remove bookmark", err)
	}
	return nil
}

// IsBookmarked reports whether the story is kept offline
func (s *Store) IsBookmarked(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, domain.NewValidationError("id", "story ID is required")
	}
	n, err := s.client.Exists(ctx, BookmarkKey(id)).Result()
	if err != nil {
		return false, domain.NewStorageError("is bookmarked", err)
	}
	return n == 1, nil
}
