package answer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistryCapacity bounds the number of live conversations kept in
// memory when no capacity is configured.
const DefaultRegistryCapacity = 1024

// session pairs a live conversation with a mutex that serializes Generate
// calls sharing one session ID. Without it, concurrent sends would
// interleave turns in the provider-side history.
type session struct {
	mu   sync.Mutex
	conv Conversation
}

// Registry maps opaque session IDs to live conversations, created lazily on
// first use. Capacity is bounded by LRU eviction: an evicted session loses
// its accumulated context and restarts fresh on the next call.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *session]
	provider Provider
	logger   *slog.Logger
}

// NewRegistry creates a registry backed by provider with the given capacity.
// capacity <= 0 uses DefaultRegistryCapacity.
func NewRegistry(provider Provider, capacity int, logger *slog.Logger) (*Registry, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = DefaultRegistryCapacity
	}
	cache, err := lru.NewWithEvict(capacity, func(id string, _ *session) {
		logger.Debug("evicted session", "session_id", id)
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	return &Registry{sessions: cache, provider: provider, logger: logger}, nil
}

// getOrCreate returns the live session for id, creating and caching a new
// grounded conversation on first use. Repeated calls with the same id return
// the same session object and therefore the same accumulated context.
func (r *Registry) getOrCreate(ctx context.Context, id string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions.Get(id); ok {
		return sess, nil
	}

	conv, err := r.provider.NewConversation(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating conversation for session %q: %w", id, err)
	}
	sess := &session{conv: conv}
	r.sessions.Add(id, sess)
	r.logger.Debug("created session", "session_id", id, "live", r.sessions.Len())
	return sess, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}
