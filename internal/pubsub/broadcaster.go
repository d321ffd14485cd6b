// Package pubsub provides a latest-value broadcaster used for token and auth
// state notifications.
package pubsub

import "sync"

// Broadcaster holds a current value and fans every change out to subscribers.
// Each subscriber channel has capacity one and always holds the newest value,
// so slow readers skip intermediate values but never block publishers.
type Broadcaster[T any] struct {
	lock   sync.RWMutex
	value  T
	nextID int
	subs   map[int]chan T
}

// NewBroadcaster returns a Broadcaster seeded with initial.
func NewBroadcaster[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{
		value: initial,
		subs:  make(map[int]chan T),
	}
}

// Load returns the current value.
func (b *Broadcaster[T]) Load() T {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.value
}

// Publish replaces the current value and notifies every subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.Swap(v)
}

// Swap replaces the current value, notifies subscribers and returns the old value.
func (b *Broadcaster[T]) Swap(v T) T {
	b.lock.Lock()
	defer b.lock.Unlock()

	old := b.value
	b.value = v
	for _, ch := range b.subs {
		offer(ch, v)
	}
	return old
}

// Subscribe returns a channel that immediately carries the current value and
// then every later one. The returned func unsubscribes and closes the channel.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.lock.Lock()
	defer b.lock.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, 1)
	ch <- b.value
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.lock.Lock()
			defer b.lock.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// offer writes v into ch, dropping a stale unread value if needed.
// Callers hold the write lock so ch has a single writer.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
