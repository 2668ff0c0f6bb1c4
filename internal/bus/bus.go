// Package bus broadcasts cart badge updates to the views of one browser
// session. A mutation first publishes an optimistic delta, then exactly one
// terminal event: the authoritative count or a revert of the delta.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
)

var (
	ErrSettled = errors.New("action already settled")
	ErrLagged  = errors.New("subscriber lagged behind")
)

const DefaultBuffer = 32

type Kind uint8

const (
	KindOptimistic Kind = iota + 1
	KindAuthoritative
	KindRevert
)

func (k Kind) String() string {
	switch k {
	case KindOptimistic:
		return "optimistic"
	case KindAuthoritative:
		return "authoritative"
	case KindRevert:
		return "revert"
	default:
		return "unknown"
	}
}

// Event is one message on a topic. Action is zero for authoritative counts
// that do not settle a user action (merge, checkout, initial sync).
type Event struct {
	Kind   Kind   `json:"-"`
	Action uint64 `json:"action,omitempty"`
	Delta  int    `json:"delta,omitempty"`
	Count  int    `json:"count"`
}

type Bus struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	buffer  int
	actions atomic.Uint64
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription receives the events of one topic until Close is called or
// the subscriber falls behind, in which case Err returns ErrLagged.
type Subscription struct {
	bus    *Bus
	topic  string
	ch     chan Event
	closed bool
	err    error
}

func (b *Bus) Subscribe(topic string) *Subscription {
	s := &Subscription{bus: b, topic: topic, ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[s] = struct{}{}
	return s
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Err() error {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	return s.err
}

func (s *Subscription) Close() {
	s.bus.drop(s, nil)
}

func (b *Bus) drop(s *Subscription, reason error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.err = reason
	close(s.ch)

	if subs, ok := b.topics[s.topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.topics, s.topic)
		}
	}
}

func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) publish(topic string, ev Event) {
	var lagging []*Subscription

	b.mu.RLock()
	for s := range b.topics[topic] {
		select {
		case s.ch <- ev:
		default:
			lagging = append(lagging, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range lagging {
		b.drop(s, ErrLagged)
	}
}

// PublishAuthoritative broadcasts ground truth that is not tied to an action.
func (b *Bus) PublishAuthoritative(topic string, count int) {
	b.publish(topic, Event{Kind: KindAuthoritative, Count: count})
}

// Begin publishes the optimistic delta of a new action.
func (b *Bus) Begin(topic string, delta int) *Action {
	a := &Action{bus: b, topic: topic, id: b.actions.Add(1), delta: delta}
	b.publish(topic, Event{Kind: KindOptimistic, Action: a.id, Delta: delta})
	return a
}

type Action struct {
	bus     *Bus
	topic   string
	id      uint64
	delta   int
	settled atomic.Bool
}

func (a *Action) ID() uint64 { return a.id }

func (a *Action) Settled() bool { return a.settled.Load() }

func (a *Action) Confirm(count int) error {
	if !a.settled.CompareAndSwap(false, true) {
		return ErrSettled
	}
	a.bus.publish(a.topic, Event{Kind: KindAuthoritative, Action: a.id, Count: count})
	return nil
}

func (a *Action) Revert() error {
	if !a.settled.CompareAndSwap(false, true) {
		return ErrSettled
	}
	a.bus.publish(a.topic, Event{Kind: KindRevert, Action: a.id, Delta: a.delta})
	return nil
}

// Settle confirms with count when err is nil and reverts otherwise.
func (a *Action) Settle(count int, err error) error {
	if err != nil {
		return a.Revert()
	}
	return a.Confirm(count)
}
