// Package state provides the observable container shared by all stores.
package state

import (
	"context"
	"sync"
)

// Op is the blocking remainder of an operation whose pending transition
// has already been applied.
type Op[T any] func(ctx context.Context) (T, error)

// Container holds one store's state. All mutations go through Apply,
// which serializes them and notifies subscribers in application order.
type Container[S any] struct {
	// deliver is held for the whole mutate+notify sequence so that
	// subscribers observe snapshots in the order they were produced.
	deliver sync.Mutex
	mu      sync.RWMutex
	state   S
	clone   func(S) S
	subs    map[int]func(S)
	nextSub int
}

// NewContainer creates a container with an initial state.
// clone must return a deep copy; snapshots handed out never alias the
// stored state.
func NewContainer[S any](initial S, clone func(S) S) *Container[S] {
	return &Container[S]{
		state: initial,
		clone: clone,
		subs:  make(map[int]func(S)),
	}
}

// Snapshot returns a copy of the current state.
func (c *Container[S]) Snapshot() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.state)
}

// Subscribe registers fn to receive every new snapshot.
// fn may call Snapshot but must not call Apply.
// The returned function removes the subscription.
func (c *Container[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Apply mutates the state with fn and publishes the result.
// Returns the published snapshot.
func (c *Container[S]) Apply(fn func(*S)) S {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	fn(&c.state)
	snap := c.clone(c.state)
	subs := make([]func(S), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(c.clone(snap))
	}
	return snap
}
