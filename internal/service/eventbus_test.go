package service

import (
	"sync"
	"testing"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DrainInOrder(t *testing.T) {
	bus := NewEventBus()
	assert.True(t, bus.IsEmpty())

	e1 := domain.Event{ID: uuid.New(), Topic: "first"}
	e2 := domain.Event{ID: uuid.New(), Topic: "second"}
	bus.Emit(e1)
	bus.Emit(e2)
	assert.Equal(t, 2, bus.Len())

	batch := bus.Drain()
	require.Len(t, batch, 2)
	assert.Equal(t, e1.ID, batch[0].ID)
	assert.Equal(t, e2.ID, batch[1].ID)

	again := bus.Drain()
	assert.NotNil(t, again)
	assert.Empty(t, again)
	assert.True(t, bus.IsEmpty())
}

func TestEventBus_ConcurrentEmitLosesNothing(t *testing.T) {
	bus := NewEventBus()

	var wg sync.WaitGroup
	seen := make(chan []domain.Event, 100)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(domain.Event{ID: uuid.New()})
			seen <- bus.Drain()
		}()
	}
	wg.Wait()
	close(seen)

	total := 0
	ids := make(map[uuid.UUID]bool)
	for batch := range seen {
		for _, e := range batch {
			assert.False(t, ids[e.ID], "event drained twice")
			ids[e.ID] = true
			total++
		}
	}
	total += len(bus.Drain())
	assert.Equal(t, 50, total)
}
