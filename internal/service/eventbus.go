package service

import (
	"sync"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/metrics"
)

// EventBus is a FIFO intake queue. Drain hands the whole pending batch to the
// caller and leaves the bus empty.
type EventBus struct {
	mu    sync.Mutex
	queue []domain.Event
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Emit(e domain.Event) {
	b.mu.Lock()
	b.queue = append(b.queue, e)
	depth := len(b.queue)
	b.mu.Unlock()
	metrics.EventBusDepth.Set(float64(depth))
}

func (b *EventBus) Drain() []domain.Event {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()
	metrics.EventBusDepth.Set(0)

	if batch == nil {
		return []domain.Event{}
	}
	return batch
}

func (b *EventBus) IsEmpty() bool {
	return b.Len() == 0
}

func (b *EventBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
