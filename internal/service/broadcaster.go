package service

import (
	"sync"
	"sync/atomic"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/metrics"
	"go.uber.org/zap"
)

const defaultSubscriberBuffer = 64

// Subscription is one live viewer. Traces arrive on C already redacted for
// Viewer.
type Subscription struct {
	id      uint64
	Viewer  string
	ch      chan *domain.ReasoningTrace
	dropped atomic.Uint64
}

func (s *Subscription) C() <-chan *domain.ReasoningTrace {
	return s.ch
}

// Dropped counts traces evicted because the subscriber fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// TraceBroadcaster fans traces out to subscribers. Publish never blocks: a
// full subscriber queue loses its oldest item.
type TraceBroadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	router *VisibilityRouter
	logger *zap.Logger
}

func NewTraceBroadcaster(router *VisibilityRouter, buffer int, logger *zap.Logger) *TraceBroadcaster {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &TraceBroadcaster{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		router: router,
		logger: logger,
	}
}

func (b *TraceBroadcaster) Subscribe(viewer string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, Viewer: viewer, ch: make(chan *domain.ReasoningTrace, b.buffer)}
	b.subs[sub.id] = sub
	metrics.Subscribers.Set(float64(len(b.subs)))
	return sub
}

// Unsubscribe closes the subscription channel. Safe to call twice.
func (b *TraceBroadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
	metrics.Subscribers.Set(float64(len(b.subs)))

	if n := sub.Dropped(); n > 0 {
		b.logger.Info("subscriber dropped traces", zap.String("viewer", sub.Viewer), zap.Uint64("dropped", n))
	}
}

func (b *TraceBroadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish offers trace once to every subscriber. Holding the lock for the
// whole fan-out keeps per-subscriber order equal to publish order.
func (b *TraceBroadcaster) Publish(trace *domain.ReasoningTrace) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		view, ok := b.router.Redact(trace, sub.Viewer)
		if !ok {
			continue
		}
		b.offer(sub, view)
	}
}

func (b *TraceBroadcaster) offer(sub *Subscription, t *domain.ReasoningTrace) {
	select {
	case sub.ch <- t:
		return
	default:
	}

	// Queue full: evict the oldest, then retry once. Only receivers drain the
	// channel concurrently, so the retry finds room.
	select {
	case <-sub.ch:
		sub.dropped.Add(1)
		metrics.BroadcastDropped.Inc()
	default:
	}
	select {
	case sub.ch <- t:
	default:
		sub.dropped.Add(1)
		metrics.BroadcastDropped.Inc()
	}
}
