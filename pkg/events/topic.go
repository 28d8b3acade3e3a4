package events

import (
	"fmt"

	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Topic is a typed view over one channel topic.
//
//	var Changed = events.NewTopic[int]("changed")
//	Changed.On(ch, func(n int) { ... })
//	Changed.Emit(ch, 3)
type Topic[T any] struct {
	name string
}

// NewTopic creates a typed topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic name.
func (t Topic[T]) Name() string {
	return t.name
}

// On subscribes a typed listener. Payloads of another type are reported
// and skipped.
func (t Topic[T]) On(ch *Channel, fn func(T)) *Subscription {
	return ch.On(t.name, t.adapt(ch, fn))
}

// Once subscribes a typed listener for the next emission only.
func (t Topic[T]) Once(ch *Channel, fn func(T)) *Subscription {
	return ch.Once(t.name, t.adapt(ch, fn))
}

// Emit delivers value to the topic's listeners.
func (t Topic[T]) Emit(ch *Channel, value T) int {
	return ch.Emit(t.name, value)
}

func (t Topic[T]) adapt(ch *Channel, fn func(T)) Listener {
	return func(payload any) {
		val, ok := payload.(T)
		if !ok && payload != nil {
			wefterrors.ReportTo(ch.handler, &wefterrors.RuntimeError{
				Op:        "events.Topic",
				Kind:      wefterrors.KindCallback,
				Token:     t.name,
				Component: ch.name,
				Err:       fmt.Errorf("payload type %T does not match topic type %T", payload, *new(T)),
			})
			return
		}
		fn(val)
	}
}
