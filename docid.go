package kadedb

import "github.com/google/uuid"

// NewDocumentKey mints a fresh, lexicographically sortable document key
// for callers of the document engine's Put that don't want to choose their
// own. It is a convenience, not a requirement: Put accepts any non-empty
// string key.
func NewDocumentKey() string {
	return uuid.Must(uuid.NewV7()).String()
}
