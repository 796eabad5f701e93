package triage

import "sync"

// keyedMutex provides per-spatial-cell mutual exclusion around the
// "evaluate eligibility, then mutate root or insert new root" sequence. Two
// near-simultaneous submissions within merge radius of each other must not
// both decide to become new roots; the pipeline locks every cell its
// candidate scan touches, so their key sets always intersect.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*cellLock
}

type cellLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*cellLock)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &cellLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the mutex for key, dropping it once unreferenced so the
// map does not grow with every cell ever touched.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

// LockKeys acquires the mutex for each key in order. Keys must be unique and
// sorted; all callers acquiring in the same global order is what makes
// overlapping key sets deadlock free.
func (k *keyedMutex) LockKeys(keys []string) {
	for _, key := range keys {
		k.Lock(key)
	}
}

// UnlockKeys releases the mutexes acquired by LockKeys, in reverse order.
func (k *keyedMutex) UnlockKeys(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		k.Unlock(keys[i])
	}
}
