package memory

import (
	"context"
	"time"
)

// Entry categories. Decisions and settled outcomes are written by the
// controller; notes come from the ops API.
const (
	CategoryDecision = "decision"
	CategoryOutcome  = "outcome"
	CategoryNote     = "note"
)

// Entry is one remembered fact about the agent's past activity.
type Entry struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists memory entries and the agent's key/value context.
// Entries are append-only; context keys are overwritten in place.
type Store interface {
	// Add appends an entry.
	Add(ctx context.Context, entry *Entry) error

	// Search returns entries whose content matches the query,
	// newest first, at most limit.
	Search(ctx context.Context, query string, limit int) ([]Entry, error)

	// SetContext stores a context value under a key.
	SetContext(ctx context.Context, key, value string) error

	// GetContext retrieves a context value. A missing key returns
	// an empty string and no error.
	GetContext(ctx context.Context, key string) (string, error)

	// Close releases the underlying resources.
	Close() error
}
