// Package connector defines the capability surface every channel adapter
// presents to the pipeline, plus the registry that builds adapters per connection.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedback-relay-go/internal/model"
)

// Connector is implemented by every channel adapter.
// Cursors are opaque to callers; only the adapter that produced one may interpret it.
type Connector interface {
	Channel() model.Channel
	// CurrentPosition returns the provider's latest cursor.
	CurrentPosition(ctx context.Context) (string, error)
	// ListChangedMessageIDs returns inbound message ids added since cursor,
	// already excluding spam and trash.
	ListChangedMessageIDs(ctx context.Context, cursor string) ([]string, error)
	FetchMessage(ctx context.Context, id string) (*model.NormalizedMessage, error)
	FetchRecentMessages(ctx context.Context, limit int) ([]model.NormalizedMessage, error)
	Close() error
}

// DraftCreator is implemented by adapters that can store an unsent reply
type DraftCreator interface {
	CreateDraftReply(ctx context.Context, ref model.ThreadRef, body string) (bool, error)
}

// WatchResult describes a started push subscription
type WatchResult struct {
	Position   string
	Expiration time.Time
}

// Watcher is implemented by adapters that support push notifications
type Watcher interface {
	Watch(ctx context.Context) (*WatchResult, error)
}

// Builder creates an adapter bound to one connection's credentials
type Builder func(ctx context.Context, conn *model.Connection) (Connector, error)

// Registry maps channels to adapter builders
type Registry struct {
	mu       sync.RWMutex
	builders map[model.Channel]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[model.Channel]Builder)}
}

func (r *Registry) Register(channel model.Channel, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[channel] = b
}

// ForConnection builds a fresh adapter for conn
func (r *Registry) ForConnection(ctx context.Context, conn *model.Connection) (Connector, error) {
	r.mu.RLock()
	b, ok := r.builders[conn.Channel]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no connector registered for channel %q", conn.Channel)
	}
	return b(ctx, conn)
}
