package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedBus_PublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	a := bus.Subscribe()
	b := bus.Subscribe()
	assert.Equal(t, 2, bus.Subscribers())
	bus.Publish("sweep done")
	assert.Equal(t, "sweep done", <-a)
	assert.Equal(t, "sweep done", <-b)
	bus.Unsubscribe(a)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestTypedBus_DropsOnFullBuffer(t *testing.T) {
	bus := NewTyped[int](WithBuffer(2))
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	assert.Equal(t, uint64(3), bus.Dropped())
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
}

func TestTypedBus_IgnoresInvalidBuffer(t *testing.T) {
	bus := NewTyped[int](WithBuffer(0))
	ch := bus.Subscribe()
	assert.Equal(t, defaultBuffer, cap(ch))
}

func TestTypedBus_Close(t *testing.T) {
	bus := NewTyped[float64]()
	ch := bus.Subscribe()
	bus.Close()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, bus.Subscribers())
	assert.NotPanics(t, func() { bus.Unsubscribe(ch) })
}
