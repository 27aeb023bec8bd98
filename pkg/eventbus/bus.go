// Package eventbus fans typed notifications out to any number of subscribers.
package eventbus

import (
	"github.com/ethereum/go-ethereum/event"
)

// Source is anything subscribers can attach a channel to
type Source[T any] interface {
	Subscribe(ch chan<- T) event.Subscription
}

// Bus delivers every published value to every live subscriber.
// Publish blocks until all subscribers have received, so subscribers must drain their channels.
type Bus[T any] struct {
	feed  event.FeedOf[T]
	scope event.SubscriptionScope
}

var _ Source[int] = (*Bus[int])(nil)

// Publish sends v to all subscribers and returns how many received it
func (b *Bus[T]) Publish(v T) int {
	return b.feed.Send(v)
}

// Subscribe registers ch. The subscription ends on Unsubscribe or Close.
func (b *Bus[T]) Subscribe(ch chan<- T) event.Subscription {
	return b.scope.Track(b.feed.Subscribe(ch))
}

// Subscribers returns the number of live subscriptions
func (b *Bus[T]) Subscribers() int {
	return b.scope.Count()
}

// Close ends every subscription
func (b *Bus[T]) Close() {
	b.scope.Close()
}

// Forward subscribes to src and calls handle for each value until the returned
// subscription is unsubscribed. The subscription to src is live when Forward returns.
func Forward[T any](src Source[T], buffer int, handle func(T)) event.Subscription {
	ch := make(chan T, buffer)
	inner := src.Subscribe(ch)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer inner.Unsubscribe()
		for {
			select {
			case v := <-ch:
				handle(v)
			case err := <-inner.Err():
				return err
			case <-quit:
				return nil
			}
		}
	})
}
