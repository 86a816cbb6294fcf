// Package events streams sync lifecycle events to local clients over
// websocket.
package events

import (
	"time"
	"unicode/utf8"
)

type Type string

const (
	TypeStorySynced  Type = "story_synced"
	TypeSyncComplete Type = "sync_complete"
	TypeStoryCreated Type = "story_created"
	TypeConnectivity Type = "connectivity"
)

// Envelope is one frame on the event stream.
type Envelope struct {
	Type Type      `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

func NewEnvelope(typ Type, data any, at time.Time) Envelope {
	return Envelope{Type: typ, At: at.UTC(), Data: data}
}

// truncate keeps at most n runes of s, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
