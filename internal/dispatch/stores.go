package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensearch-project/notifications-sub002/internal/model"
)

// ConfigStore resolves stored channel configurations by document ID.
// Missing IDs are omitted from the result, not errors.
type ConfigStore interface {
	GetConfigs(ctx context.Context, ids []string) ([]model.ConfigDocInfo, error)
}

// EventStore persists notification events and returns the new document ID.
type EventStore interface {
	CreateEvent(ctx context.Context, event *model.NotificationEvent) (string, error)
}

// MemoryConfigStore is an in-memory ConfigStore for tests and the CLI.
type MemoryConfigStore struct {
	mu      sync.RWMutex
	configs map[string]model.NotificationConfig
}

// NewMemoryConfigStore builds an empty store.
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{configs: make(map[string]model.NotificationConfig)}
}

// Put stores or replaces a config under the given ID.
func (s *MemoryConfigStore) Put(id string, config model.NotificationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[id] = config
}

// GetConfigs implements ConfigStore. Results keep the order of ids;
// missing IDs are skipped.
func (s *MemoryConfigStore) GetConfigs(_ context.Context, ids []string) ([]model.ConfigDocInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]model.ConfigDocInfo, 0, len(ids))
	for _, id := range ids {
		if config, ok := s.configs[id]; ok {
			docs = append(docs, model.ConfigDocInfo{ID: id, Config: config})
		}
	}
	return docs, nil
}

// MemoryEventStore is an in-memory EventStore for tests and the CLI.
type MemoryEventStore struct {
	mu     sync.Mutex
	events map[string]*model.NotificationEvent

	// failWith, when set, makes the next CreateEvent fail. Test hook.
	failWith error
}

// NewMemoryEventStore builds an empty store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: make(map[string]*model.NotificationEvent)}
}

// FailWith makes subsequent CreateEvent calls return err. Pass nil to
// restore normal behavior.
func (s *MemoryEventStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// CreateEvent implements EventStore.
func (s *MemoryEventStore) CreateEvent(_ context.Context, event *model.NotificationEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	id := uuid.NewString()
	stored := *event
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.events[id] = &stored
	return id, nil
}

// Get returns a stored event by ID.
func (s *MemoryEventStore) Get(id string) (*model.NotificationEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	return event, ok
}

// Len returns the number of stored events.
func (s *MemoryEventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
