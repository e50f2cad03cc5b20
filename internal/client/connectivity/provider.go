// Package connectivity reports whether the remote authority is reachable and
// notifies subscribers about transitions. The gateway consults it on every
// call; the sync engine uses the became-reachable transition as its canonical
// trigger.
package connectivity

import "sync"

// Provider exposes the current reachability and transition events.
type Provider interface {
	// IsOnline reports the current reachability, synchronously.
	IsOnline() bool

	// Subscribe registers fn to be called on every transition with the new
	// state. The returned cancel removes the subscription.
	Subscribe(fn func(online bool)) (cancel func())
}

// notifier carries the shared subscribe/transition machinery.
type notifier struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

func (n *notifier) IsOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

func (n *notifier) Subscribe(fn func(online bool)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(online bool))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// set updates the state and, on a transition, invokes subscribers outside
// the lock. Returns true if the state changed.
func (n *notifier) set(online bool) bool {
	n.mu.Lock()
	if n.online == online {
		n.mu.Unlock()
		return false
	}
	n.online = online
	fns := make([]func(bool), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
	return true
}

// Manual is a Provider whose state is flipped explicitly. It backs tests and
// the forced-offline mode.
type Manual struct {
	notifier
}

// NewManual returns a Manual provider in the given initial state.
func NewManual(online bool) *Manual {
	m := &Manual{}
	m.online = online
	return m
}

// SetOnline flips the state, firing transition callbacks when it changes.
func (m *Manual) SetOnline(online bool) {
	m.set(online)
}
