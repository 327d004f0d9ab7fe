// Package eventbus is a small in-process pub/sub used as the trigger
// point for external notifiers: workflows publish after their
// transaction commits, listeners run detached from the request.
package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Event interface {
	Name() string
}

type Listener func(ctx context.Context, event Event) error

type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish dispatches the event to all subscribers asynchronously.
// Listener errors are logged, never propagated: a notification failure
// must not fail the business operation that triggered it.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	listeners := b.listeners[event.Name()]
	b.mu.RUnlock()

	for _, listener := range listeners {
		go func(l Listener) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := l(ctx, event); err != nil {
				b.logger.Error("event listener failed",
					zap.String("event", event.Name()),
					zap.Error(err),
				)
			}
		}(listener)
	}
}
