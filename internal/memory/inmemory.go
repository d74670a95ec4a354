package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InMemoryStore implements Store with maps. Used for paper trading
// and dry runs where nothing should outlive the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	context map[string]string
	logger  *zap.Logger
}

// NewInMemoryStore creates an in-process memory store.
func NewInMemoryStore(logger *zap.Logger) *InMemoryStore {
	logger.Info("in-memory-store-initialized")
	return &InMemoryStore{
		context: make(map[string]string),
		logger:  logger,
	}
}

// Add appends an entry.
func (m *InMemoryStore) Add(_ context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	m.mu.Lock()
	m.entries = append(m.entries, *entry)
	m.mu.Unlock()

	EntriesAddedTotal.WithLabelValues(entry.Category).Inc()

	return nil
}

// Search matches query as a case-insensitive substring of content.
func (m *InMemoryStore) Search(_ context.Context, query string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)

	var matched []Entry
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Content), needle) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	SearchesTotal.Inc()

	return matched, nil
}

// SetContext stores a context value.
func (m *InMemoryStore) SetContext(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.context[key] = value
	m.mu.Unlock()

	return nil
}

// GetContext retrieves a context value. Missing keys return "".
func (m *InMemoryStore) GetContext(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.context[key], nil
}

// Close is a no-op.
func (m *InMemoryStore) Close() error {
	m.logger.Info("closing-in-memory-store")
	return nil
}
