package domain

import "time"

// Story is the normalized shape of a story confirmed by the remote API.
// Gateway adapters guarantee this shape whatever envelope the server used.
type Story struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
}

// PendingStory is a user-authored story not yet confirmed by the server.
//
// The local store owns it exclusively. Copies held anywhere else are
// caches and are stale after any mutating store call.
type PendingStory struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// TempID is generated locally and never changes.
	// Example: offline_0192b1e4-7c2a-7d3e-9f10-2b8c1d4e5f60
	TempID string `json:"tempId"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Description string `json:"description"`

	// Photo is a self-contained data URL: data:<mime>;base64,<payload>
	Photo string `json:"photo"`

	// Lat and Lon are both set or both nil.
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// CreatedAt is the capture time, set once.
	CreatedAt time.Time `json:"createdAt"`

	// ─────────────────────────────
	// Sync state
	// ─────────────────────────────

	// Synced is false until the remote write is confirmed.
	// Records persisted without the field decode as false.
	Synced bool `json:"synced"`

	// ServerID is the remote story id, empty until synced.
	ServerID string `json:"serverId,omitempty"`

	// SyncedAt is set exactly once, on the false->true transition of Synced.
	SyncedAt *time.Time `json:"syncedAt,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (p *PendingStory) HasLocation() bool {
	return p.Lat != nil && p.Lon != nil
}

// MarkSynced applies the synced transition. A record that is already
// synced keeps its first SyncedAt so repeated calls converge on one state.
func (p *PendingStory) MarkSynced(serverID string, now time.Time) {
	if p.Synced && p.SyncedAt != nil {
		if serverID != "" {
			p.ServerID = serverID
		}
		return
	}
	p.Synced = true
	p.ServerID = serverID
	at := now.UTC()
	p.SyncedAt = &at
}

// Clone returns a deep copy so callers never alias store-owned state.
func (p *PendingStory) Clone() *PendingStory {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Lat = cloneFloat(p.Lat)
	cp.Lon = cloneFloat(p.Lon)
	if p.SyncedAt != nil {
		at := *p.SyncedAt
		cp.SyncedAt = &at
	}
	return &cp
}

// BookmarkedStory is a snapshot of a server story kept available offline.
// Keyed by Story.ID. Created and deleted by the user, never mutated.
type BookmarkedStory struct {
	Story
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

// Validate checks that the bookmark can be keyed.
func (b *BookmarkedStory) Validate() error {
	if b == nil || b.ID == "" {
		return NewValidationError("id", "story ID is required to bookmark")
	}
	return nil
}

// Clone returns a deep copy.
func (b *BookmarkedStory) Clone() *BookmarkedStory {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Lat = cloneFloat(b.Lat)
	cp.Lon = cloneFloat(b.Lon)
	return &cp
}

// PendingByCreatedAt orders pending records oldest first, ties broken by TempID.
func PendingByCreatedAt(a, b *PendingStory) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.TempID < b.TempID:
		return -1
	case a.TempID > b.TempID:
		return 1
	}
	return 0
}

// FilterUnsynced keeps the records not yet confirmed by the server.
// Filtering on the boolean, rather than an index keyed on it, keeps
// records that were persisted without the field.
func FilterUnsynced(all []*PendingStory) []*PendingStory {
	out := make([]*PendingStory, 0, len(all))
	for _, p := range all {
		if !p.Synced {
			out = append(out, p)
		}
	}
	return out
}

// Float returns a pointer to v. Handy for optional coordinates.
func Float(v float64) *float64 { return &v }

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}
