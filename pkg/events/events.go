package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ClearCacheEvent asks every node to drop its cached favourites
type ClearCacheEvent struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Reason   string    `json:"reason,omitempty"`
	IssuedAt time.Time `json:"issuedAt"`
}

// NewClearCacheEvent stamps a new event with a random id and the current time
func NewClearCacheEvent(source, reason string) ClearCacheEvent {
	return ClearCacheEvent{
		ID:       uuid.NewString(),
		Source:   source,
		Reason:   reason,
		IssuedAt: time.Now().UTC(),
	}
}

// ClearCacheListener is implemented by components holding cached state
type ClearCacheListener interface {
	OnClearCache(ctx context.Context, event ClearCacheEvent) error
}

// ClearCacheListenerFunc adapts a function to ClearCacheListener
type ClearCacheListenerFunc func(ctx context.Context, event ClearCacheEvent) error

func (f ClearCacheListenerFunc) OnClearCache(ctx context.Context, event ClearCacheEvent) error {
	return f(ctx, event)
}

// Publisher sends a clear cache event, locally or to other nodes
type Publisher interface {
	Publish(ctx context.Context, event ClearCacheEvent) error
}

// Bus dispatches clear cache events to the listeners of this process
// Bus is safe for concurrent use
type Bus struct {
	mu        sync.RWMutex
	listeners map[string]ClearCacheListener
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[string]ClearCacheListener)}
}

var _ Publisher = (*Bus)(nil)

// Subscribe registers listener and returns the id to unsubscribe with
func (b *Bus) Subscribe(listener ClearCacheListener) string {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[id] = listener
	return id
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, id)
}

// Publish calls every listener even when some fail, the failures are joined
func (b *Bus) Publish(ctx context.Context, event ClearCacheEvent) error {
	b.mu.RLock()
	listeners := make([]ClearCacheListener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"eventId":   event.ID,
		"source":    event.Source,
		"listeners": len(listeners),
	})
	log.Info("dispatching clear cache event")

	var errs []error
	for _, l := range listeners {
		if err := l.OnClearCache(ctx, event); err != nil {
			log.WithError(err).Error("clear cache listener failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
