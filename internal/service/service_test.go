package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/localcart"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type testEnv struct {
	Repo   *repo.GormRepo
	Local  *localcart.Memory
	Bus    *bus.Bus
	Kafka  *recordingPublisher
	Cart   *CartService
	Merger *Merger
	Orders *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := &repo.GormRepo{DB: testutil.NewDB(t)}
	local := localcart.NewMemory()
	b := bus.New(64)
	kafka := &recordingPublisher{}

	return &testEnv{
		Repo:  r,
		Local: local,
		Bus:   b,
		Kafka: kafka,
		Cart: &CartService{
			Repo:     r,
			Products: r,
			Local:    local,
			Bus:      b,
			Events:   kafka,
		},
		Merger: &Merger{
			Local:  local,
			Repo:   r,
			Bus:    b,
			Events: kafka,
		},
		Orders: &OrderService{
			Repo:   r,
			Bus:    b,
			Events: kafka,
		},
	}
}

func drainBus(sub *bus.Subscription) []bus.Event {
	var out []bus.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
