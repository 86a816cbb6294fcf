package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/storysync/internal/store"
	"github.com/MrSnakeDoc/storysync/internal/store/memory"
	"github.com/MrSnakeDoc/storysync/internal/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.PutPending(ctx, storetest.NewPending("offline_1", s.Now())); err != nil {
		t.Fatalf("PutPending() error = %v", err)
	}

	got, _, _ := s.GetPending(ctx, "offline_1")
	got.Description = "mutated by caller"
	*got.Lat = 0

	again, _, _ := s.GetPending(ctx, "offline_1")
	if again.Description == "mutated by caller" || *again.Lat == 0 {
		t.Error("caller mutation leaked into the store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "offline_" + string(rune('a'+n%26))
			_ = s.PutPending(ctx, storetest.NewPending(id, s.Now()))
			_, _ = s.GetUnsyncedPending(ctx)
			_ = s.MarkPendingSynced(ctx, id, "story")
		}(i)
	}
	wg.Wait()

	if s.PendingCount() != 26 {
		t.Errorf("PendingCount() = %d, want 26", s.PendingCount())
	}
}
