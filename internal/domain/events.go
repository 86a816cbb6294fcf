package domain

// StorySynced is emitted once per record confirmed by the server.
type StorySynced struct {
	TempID      string `json:"tempId"`
	ServerStory *Story `json:"serverStory"`
}

// SyncComplete is emitted once per drain, even when nothing synced.
type SyncComplete struct {
	SyncedCount int `json:"syncedCount"`
}

// StoryCreated is the notification side-effect of a live online submission.
type StoryCreated struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	StoryID string `json:"storyId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ConnectivityChanged reports a transition of the connectivity signal.
type ConnectivityChanged struct {
	Online bool `json:"online"`
}
