// Package events provides the per-component publish/subscribe channel.
//
// A Channel maps topic names to ordered listener lists. Emit delivers a
// payload to the listeners subscribed at the moment of the call, in
// subscription order. There is no backlog: listeners added after an
// emission never observe it. A panicking listener is recovered and reported
// and the remaining listeners still run.
//
//	ch := events.NewChannel("counter", nil)
//	sub := ch.On("changed", func(payload any) { fmt.Println(payload) })
//	ch.Emit("changed", 3)
//	sub.Cancel()
package events

import (
	"fmt"
	"sync"

	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Listener receives an event payload.
type Listener func(payload any)

// Subscription is a handle to one registered listener.
type Subscription struct {
	ch     *Channel
	topic  string
	id     uint64
	fn     Listener
	once   bool
	fired  bool
	active bool
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Active reports whether the subscription is still registered.
func (s *Subscription) Active() bool {
	if s == nil || s.ch == nil {
		return false
	}
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	return s.active
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.ch == nil {
		return
	}
	s.ch.Off(s)
}

// Channel is an ordered, topic-addressed listener registry.
// It is cleared entirely when its owning component unmounts.
type Channel struct {
	name    string
	handler wefterrors.ErrorHandler
	topics  map[string][]*Subscription
	nextID  uint64
	mu      sync.Mutex
}

// NewChannel creates an empty channel. Listener faults are reported to
// handler, or to the global handler when handler is nil.
func NewChannel(name string, handler wefterrors.ErrorHandler) *Channel {
	return &Channel{
		name:    name,
		handler: handler,
		topics:  make(map[string][]*Subscription),
	}
}

// Name returns the channel's name, usually the owning component's name.
func (c *Channel) Name() string {
	return c.name
}

// On subscribes fn to topic.
func (c *Channel) On(topic string, fn Listener) *Subscription {
	return c.add(topic, fn, false)
}

// Once subscribes fn to the next emission of topic only. The subscription
// is removed before fn is invoked.
func (c *Channel) Once(topic string, fn Listener) *Subscription {
	return c.add(topic, fn, true)
}

func (c *Channel) add(topic string, fn Listener, once bool) *Subscription {
	if fn == nil {
		panic(wefterrors.Usagef("events.On", "nil listener for topic %q", topic))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	sub := &Subscription{
		ch:     c,
		topic:  topic,
		id:     c.nextID,
		fn:     fn,
		once:   once,
		active: true,
	}
	c.topics[topic] = append(c.topics[topic], sub)
	return sub
}

// Off removes a subscription. Removing a listener during Emit does not
// affect the listeners already scheduled for that emission.
func (c *Channel) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(sub)
}

func (c *Channel) removeLocked(sub *Subscription) {
	if !sub.active {
		return
	}
	sub.active = false
	list := c.topics[sub.topic]
	for i, s := range list {
		if s == sub {
			// Snapshots held by an in-flight Emit must stay intact.
			next := make([]*Subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(c.topics, sub.topic)
			} else {
				c.topics[sub.topic] = next
			}
			return
		}
	}
}

// Emit delivers payload to every listener of topic in subscription order and
// returns the number of listeners invoked.
func (c *Channel) Emit(topic string, payload any) int {
	c.mu.Lock()
	snapshot := c.topics[topic]
	c.mu.Unlock()

	delivered := 0
	for _, sub := range snapshot {
		if sub.once {
			c.mu.Lock()
			if sub.fired {
				c.mu.Unlock()
				continue
			}
			sub.fired = true
			c.removeLocked(sub)
			c.mu.Unlock()
		}
		c.invoke(sub, payload)
		delivered++
	}
	return delivered
}

func (c *Channel) invoke(sub *Subscription, payload any) {
	op := fmt.Sprintf("events.Emit(%s)", sub.topic)
	_ = wefterrors.Guard(c.handler, op, func() error {
		sub.fn(payload)
		return nil
	})
}

// RemoveAllListeners removes every listener of the given topics, or of all
// topics when none are given.
func (c *Channel) RemoveAllListeners(topics ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(topics) == 0 {
		for _, list := range c.topics {
			for _, sub := range list {
				sub.active = false
			}
		}
		c.topics = make(map[string][]*Subscription)
		return
	}
	for _, topic := range topics {
		for _, sub := range c.topics[topic] {
			sub.active = false
		}
		delete(c.topics, topic)
	}
}

// ListenerCount returns the number of listeners on topic, or on all topics
// when topic is empty.
func (c *Channel) ListenerCount(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if topic != "" {
		return len(c.topics[topic])
	}
	n := 0
	for _, list := range c.topics {
		n += len(list)
	}
	return n
}

// Topics returns the topics that currently have listeners.
func (c *Channel) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		out = append(out, topic)
	}
	return out
}
