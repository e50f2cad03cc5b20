// Package keylock provides mutual exclusion keyed by entity id, so the
// gateway and the sync engine serialize their
// read-pending-state → mutate → persist sequences per entity without a
// global lock.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock hands out one mutex per key. Unused entries are reclaimed once the
// last holder unlocks.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New returns an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held and returns the corresponding
// unlock function.
func (k *KeyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Do runs fn while holding the lock for key.
func (k *KeyLock) Do(key string, fn func()) {
	unlock := k.Lock(key)
	defer unlock()
	fn()
}
