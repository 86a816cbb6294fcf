package domain

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"
)

func TestPendingStoryMarkSynced(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &PendingStory{TempID: "offline_1", Description: "Sunset"}

	p.MarkSynced("story-1", first)
	if !p.Synced || p.ServerID != "story-1" || p.SyncedAt == nil {
		t.Fatalf("MarkSynced() = %+v, want synced with server id and timestamp", p)
	}
	if !p.SyncedAt.Equal(first) {
		t.Errorf("SyncedAt = %v, want %v", p.SyncedAt, first)
	}

	// Second call must not move SyncedAt.
	p.MarkSynced("story-1", first.Add(time.Hour))
	if !p.SyncedAt.Equal(first) {
		t.Errorf("SyncedAt moved on second MarkSynced: %v", p.SyncedAt)
	}
}

func TestPendingStoryHasLocation(t *testing.T) {
	tests := []struct {
		name string
		lat  *float64
		lon  *float64
		want bool
	}{
		{name: "both", lat: Float(-6.2), lon: Float(106.8), want: true},
		{name: "none", want: false},
		{name: "lat only", lat: Float(1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &PendingStory{Lat: tt.lat, Lon: tt.lon}
			if got := p.HasLocation(); got != tt.want {
				t.Errorf("HasLocation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookmarkedStoryValidate(t *testing.T) {
	if err := (&BookmarkedStory{Story: Story{ID: "s1"}}).Validate(); err != nil {
		t.Errorf("Validate() with id = %v, want nil", err)
	}
	err := (&BookmarkedStory{}).Validate()
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Validate() without id = %v, want ErrValidation", err)
	}
}

func TestPendingByCreatedAt(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*PendingStory{
		{TempID: "c", CreatedAt: base.Add(2 * time.Second)},
		{TempID: "b", CreatedAt: base},
		{TempID: "a", CreatedAt: base},
	}
	slices.SortFunc(records, PendingByCreatedAt)

	got := []string{records[0].TempID, records[1].TempID, records[2].TempID}
	want := []string{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestErrorCategories(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "storage", err: NewStorageError("put pending", cause), target: ErrStorageFailure},
		{name: "storage cause", err: NewStorageError("put pending", cause), target: cause},
		{name: "validation", err: NewValidationError("photo", "empty"), target: ErrValidation},
		{name: "remote", err: &RemoteRejectedError{StatusCode: 400, Message: "bad"}, target: ErrRemoteRejected},
		{name: "wrapped remote", err: fmt.Errorf("submit: %w", &RemoteRejectedError{Message: "bad"}), target: ErrApplicationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
		})
	}
}
