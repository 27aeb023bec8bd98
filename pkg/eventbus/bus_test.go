package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	var bus Bus[string]
	defer bus.Close()

	a := make(chan string, 1)
	b := make(chan string, 1)
	subA := bus.Subscribe(a)
	defer subA.Unsubscribe()
	subB := bus.Subscribe(b)
	defer subB.Unsubscribe()

	assert.Equal(t, 2, bus.Subscribers())
	assert.Equal(t, 2, bus.Publish("quoted"))
	assert.Equal(t, "quoted", <-a)
	assert.Equal(t, "quoted", <-b)
}

func TestBusUnsubscribe(t *testing.T) {
	var bus Bus[int]
	ch := make(chan int, 1)
	sub := bus.Subscribe(ch)
	sub.Unsubscribe()

	assert.Equal(t, 0, bus.Publish(1))
	assert.Equal(t, 0, bus.Subscribers())
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	var bus Bus[int]
	sub := bus.Subscribe(make(chan int))
	bus.Close()

	select {
	case _, ok := <-sub.Err():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestForward(t *testing.T) {
	var bus Bus[int]
	defer bus.Close()

	got := make(chan int, 3)
	sub := Forward[int](&bus, 4, func(v int) { got <- v * 10 })
	defer sub.Unsubscribe()

	require.Equal(t, 1, bus.Publish(1))
	bus.Publish(2)

	assert.Equal(t, 10, <-got)
	assert.Equal(t, 20, <-got)
}
