// Package bus implements the fan-out of freshly created notifications to live
// subscribers. There is one topic per subject plus a shared all-staff topic.
// Publishing never blocks the producer: each subscriber owns a bounded inbox,
// and when an inbox is full the oldest undelivered item is dropped to make
// room. Live delivery is best-effort: the notification record itself remains
// retrievable by polling regardless of the bus outcome.
package bus

import (
	"sync"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// TopicAllStaff is the shared topic that every connected administrator
// subscribes to.
const TopicAllStaff = string(model.AllStaff)

// DefaultInboxSize is the per-subscriber inbox capacity used when no
// explicit size is configured.
const DefaultInboxSize = 16

// SubjectTopic returns the topic name for a subject's personal notifications.
func SubjectTopic(subjectID string) string {
	return subjectID
}

// Subscription represents one subscriber's membership in a single topic, or
// a tap on every topic.
type Subscription struct {
	topic string
	all   bool
	ch    chan model.Notification
}

// Topic returns the topic this subscription belongs to.
func (s *Subscription) Topic() string {
	return s.topic
}

// C returns the channel on which notifications are delivered.
func (s *Subscription) C() <-chan model.Notification {
	return s.ch
}

// Bus routes published notifications to topic subscribers.
type Bus struct {
	mu        sync.Mutex
	topics    map[string]map[*Subscription]struct{}
	taps      map[*Subscription]struct{}
	inboxSize int
}

// New returns a bus whose subscribers each own an inbox of the given size. A
// non-positive size falls back to DefaultInboxSize.
func New(inboxSize int) *Bus {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Bus{
		topics:    make(map[string]map[*Subscription]struct{}),
		taps:      make(map[*Subscription]struct{}),
		inboxSize: inboxSize,
	}
}

// Subscribe adds a subscriber to a topic and returns its subscription handle.
func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan model.Notification, b.inboxSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// SubscribeAll adds a tap that receives every published notification
// regardless of topic, e.g. a bridge that relays live deliveries to another
// transport. The returned handle is released with Unsubscribe like any other
// subscription.
func (b *Bus) SubscribeAll() *Subscription {
	sub := &Subscription{
		all: true,
		ch:  make(chan model.Notification, b.inboxSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.taps[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription from its topic and closes its delivery
// channel. Unsubscribing twice is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.all {
		if _, ok := b.taps[sub]; !ok {
			return
		}
		delete(b.taps, sub)
		close(sub.ch)
		return
	}

	subs := b.topics[sub.topic]
	if subs == nil {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers a notification to every subscriber of the topic and to
// every tap. When a subscriber's inbox is full, the oldest undelivered
// notification is dropped so that the newest one always fits. Publish never
// blocks.
func (b *Bus) Publish(topic string, notification model.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.topics[topic] {
		deliver(sub, notification)
	}
	for sub := range b.taps {
		deliver(sub, notification)
	}
}

// deliver puts a notification in a subscriber's inbox without blocking.
func deliver(sub *Subscription, notification model.Notification) {
	select {
	case sub.ch <- notification:
	default:
		// Inbox full. Drop the oldest item to make room. The receive can
		// still race with the subscriber draining its inbox, so the send
		// stays non-blocking as well.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- notification:
		default:
		}
	}
}
