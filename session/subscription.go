package session

import (
	"sync"
)

// Subscription is an unbounded event queue.  Publishing never blocks; the
// subscriber waits on Ready and then drains everything queued so far.
type Subscription struct {
	mutex sync.Mutex
	queue []Event

	ready chan struct{}
}

func newSubscription() *Subscription {
	return &Subscription{
		ready: make(chan struct{}, 1),
	}
}

func (sub *Subscription) publish(event Event) {
	sub.mutex.Lock()
	sub.queue = append(sub.queue, event)
	sub.mutex.Unlock()

	select {
	case sub.ready <- struct{}{}:
	default: // a wake up is already pending
	}
}

// Ready receives a value whenever events were published since the last
// Drain.  Spurious wake ups (empty Drain) are possible.
func (sub *Subscription) Ready() <-chan struct{} {
	return sub.ready
}

// Drain returns the queued events in publishing order.
func (sub *Subscription) Drain() []Event {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()

	events := sub.queue
	sub.queue = nil
	return events
}

func (session *Session) Subscribe() *Subscription {
	sub := newSubscription()
	session.subscribers = append(session.subscribers, sub)
	return sub
}

func (session *Session) Unsubscribe(sub *Subscription) {
	for idx, subscriber := range session.subscribers {
		if subscriber == sub {
			session.subscribers = append(
				session.subscribers[:idx],
				session.subscribers[idx+1:]...)
			return
		}
	}
}

func (session *Session) publish(event Event) {
	session.log.Debugf("event %s: %+v", event.Kind(), event)
	for _, sub := range session.subscribers {
		sub.publish(event)
	}
}
