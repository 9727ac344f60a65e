// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/metrics"
)

// DefaultCapacity is the per-subscriber queue bound.
const DefaultCapacity = 64

const dropLogEvery = 100

// ErrClosed is returned by Subscription.Next after the subscription or bus is closed.
var ErrClosed = errors.New("progress subscription closed")

// Bus is an in-memory broadcast channel. Publish never blocks: every
// subscriber owns a bounded FIFO and loses its oldest unread event when full.
type Bus struct {
	capacity int
	seq      atomic.Uint64
	dropped  atomic.Uint64

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBus creates a bus whose subscribers buffer up to capacity events.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Publish broadcasts ev to every current subscriber in publish order.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	// Sequencing and delivery share the lock so every subscriber sees one total order.
	ev.Seq = b.seq.Add(1)
	metrics.IncProgressPublished(string(ev.Status))
	for sub := range b.subs {
		if sub.push(ev) {
			metrics.IncProgressDrop("overflow")
			if n := b.dropped.Add(1); n%dropLogEvery == 1 {
				logger := log.WithComponent("progress")
				logger.Warn().
					Str(log.FieldEvent, "progress.drop").
					Uint64("dropped", n).
					Int("capacity", b.capacity).
					Msg("slow progress subscriber, oldest events dropped")
			}
		}
	}
}

// Subscribe attaches a new observer. It receives events published after this call.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus:      b,
		capacity: b.capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.markClosed()
		return sub
	}
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	metrics.SetProgressSubscribers(n)
	return sub
}

// Subscribers returns the number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close detaches and closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.markClosed()
	}
	metrics.SetProgressSubscribers(0)
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	n := len(b.subs)
	b.mu.Unlock()
	metrics.SetProgressSubscribers(n)
}

// Subscription is one observer's view of the bus.
type Subscription struct {
	bus      *Bus
	capacity int

	mu      sync.Mutex
	queue   []Event
	closed  bool
	dropped uint64

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// push enqueues ev and reports whether an older event had to be dropped.
func (s *Subscription) push(ev Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	dropped := false
	if len(s.queue) >= s.capacity {
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.dropped++
		dropped = true
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return dropped
}

// Next blocks until the next event is available, ctx ends, or the subscription closes.
// Events queued before Close are still delivered.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return Event{}, ErrClosed
		}

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Events returns the subscriber's lazy event sequence. It never terminates on
// its own; it ends only when ctx ends, the subscription closes, or the consumer stops.
func (s *Subscription) Events(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Dropped returns how many events this subscriber lost to overflow.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close detaches the subscription from the bus. It affects no other subscriber.
func (s *Subscription) Close() {
	s.bus.remove(s)
	s.markClosed()
}

func (s *Subscription) markClosed() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

var _ Publisher = (*Bus)(nil)
