package redis

import "strings"

const prefix = "storysync"

func key(parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}

// PendingKey returns the Redis key for one pending record
func PendingKey(tempID string) string {
	return key("pending-stories", tempID)
}

// AllPendingKey returns the set indexing every pending TempID. Index sets
// live outside the record namespaces so no ID can collide with them.
func AllPendingKey() string {
	return key("index", "pending-stories")
}

// BookmarkKey returns the Redis key for one bookmarked story
func BookmarkKey(id string) string {
	return key("bookmarked-stories", id)
}

// AllBookmarksKey returns the set indexing every bookmarked story ID
func AllBookmarksKey() string {
	return key("index", "bookmarked-stories")
}
