package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// markRetries bounds optimistic-lock retries on MarkPendingSynced
const markRetries = 5

// Store keeps both collections as JSON blobs with a SET index per collection.
// Records carry no TTL: the queue must outlive any outage.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore wraps a connected client. Close closes the client.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// PutPending stores a record and indexes it in one MULTI/EXEC
func (s *Store) PutPending(ctx context.Context, story *domain.PendingStory) error {
	if story == nil || story.TempID == "" {
		return domain.NewValidationError("tempId", "tempId is required")
	}
	data, err := json.Marshal(story)
	if err != nil {
		return domain.NewStorageError("put pending", fmt.Errorf("failed to marshal pending story: %w", err))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, PendingKey(story.TempID), data, 0)
		pipe.SAdd(ctx, AllPendingKey(), story.TempID)
		return nil
	})
	if err != nil {
		return domain.NewStorageError("put pending", err)
	}
	return nil
}

// GetPending retrieves a record by TempID
func (s *Store) GetPending(ctx context.Context, tempID string) (*domain.PendingStory, bool, error) {
	data, err := s.client.Get(ctx, PendingKey(tempID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("get pending", err)
	}

	p, err := decodePending(data)
	if err != nil {
		return nil, false, domain.NewStorageError("get pending", err)
	}
	return p, true, nil
}

// GetAllPending retrieves every indexed record, oldest first
func (s *Store) GetAllPending(ctx context.Context) ([]*domain.PendingStory, error) {
	ids, err := s.client.SMembers(ctx, AllPendingKey()).Result()
	if err != nil {
		return nil, domain.NewStorageError("list pending", fmt.Errorf("failed to get pending IDs: %w", err))
	}
	if len(ids) == 0 {
		return []*domain.PendingStory{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = PendingKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewStorageError("list pending", err)
	}

	out := make([]*domain.PendingStory, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry outlived its record
			continue
		}
		p, err := decodePending([]byte(raw))
		if err != nil {
			return nil, domain.NewStorageError("list pending", err)
		}
		out = append(out, p)
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

// MarkPendingSynced rewrites the record under WATCH so a concurrent writer
// cannot interleave between the read and the write.
func (s *Store) MarkPendingSynced(ctx context.Context, tempID, serverID string) error {
	key := PendingKey(tempID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		p, err := decodePending(data)
		if err != nil {
			return err
		}
		p.MarkSynced(serverID, s.now())

		updated, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal pending story: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	var err error
	for range markRetries {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return domain.NewStorageError("mark synced", err)
	}
	return nil
}

// RemovePending deletes the record and its index entry
func (s *Store) RemovePending(ctx context.Context, tempID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, PendingKey(tempID))
		pipe.SRem(ctx, AllPendingKey(), tempID)
		return nil
	})
	if err != nil {
		return domain.NewStorageError("remove pending", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// decodePending leaves Synced false when the blob predates the field
func decodePending(data []byte) (*domain.PendingStory, error) {
	var p domain.PendingStory
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending story: %w", err)
	}
	return &p, nil
}
