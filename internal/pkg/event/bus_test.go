package event

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	got := map[string][]interface{}{}
	record := func(name string) Handler {
		return func(payload interface{}) {
			mu.Lock()
			got[name] = append(got[name], payload)
			mu.Unlock()
		}
	}
	bus.Subscribe(ShareCreated, record("a"))
	bus.Subscribe(ShareCreated, record("b"))
	bus.Subscribe(ShareExpired, record("expired"))

	bus.Publish(ShareCreated, "link-1")
	bus.Shutdown()

	assert.Equal(t, []interface{}{"link-1"}, got["a"])
	assert.Equal(t, []interface{}{"link-1"}, got["b"])
	assert.Empty(t, got["expired"])
}

func TestEventBus_HandlerPanicDoesNotStopWorkers(t *testing.T) {
	bus := NewEventBus()

	var handled atomic.Int32
	bus.Subscribe(ShareDeleted, func(payload interface{}) {
		if payload == "boom" {
			panic("handler exploded")
		}
		handled.Add(1)
	})

	bus.Publish(ShareDeleted, "boom")
	bus.Publish(ShareDeleted, "ok")
	bus.Shutdown()

	assert.Equal(t, int32(1), handled.Load())
}

func TestEventBus_PublishAfterShutdownIsDropped(t *testing.T) {
	bus := NewEventBus()
	bus.Shutdown()

	assert.NotPanics(t, func() {
		bus.Publish(ShareCreated, "late")
	})
	assert.NotPanics(t, bus.Shutdown)
}
