package bussvc

import (
	"context"
	"sync"

	"github.com/trezcool/masomo/core"
)

// InmemBus records published events. DEV and test stand-in for RedisBus.
type InmemBus struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventBus = (*InmemBus)(nil)

func NewInmemBus() *InmemBus { return &InmemBus{} }

func (b *InmemBus) Publish(ctx context.Context, evt core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return nil
}

// Events returns a copy of everything published so far.
func (b *InmemBus) Events() []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Event(nil), b.events...)
}

func (b *InmemBus) Close() error { return nil }
