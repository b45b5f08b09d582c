package ledger

import (
	"fmt"
	"sync"
)

// keyedMutex serializes work per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.RWMutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) acquire(key string) *refLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *keyedMutex) release(key string, l *refLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock blocks until key is free and returns the matching unlock func
func (k *keyedMutex) Lock(key string) func() {
	l := k.acquire(key)
	l.Lock()
	return func() {
		l.Unlock()
		k.release(key, l)
	}
}

// RLock shares key with other readers and excludes Lock holders
func (k *keyedMutex) RLock(key string) func() {
	l := k.acquire(key)
	l.RLock()
	return func() {
		l.RUnlock()
		k.release(key, l)
	}
}

// LockPosition serializes changes to the position of symbol seen by userID.
// A nil user sees every holder of the symbol, so it takes the symbol key
// exclusively; a user takes it shared plus its own (symbol, user) key.
func (k *keyedMutex) LockPosition(symbol string, userID *int64) func() {
	if userID == nil {
		return k.Lock(symbolLockKey(symbol))
	}
	unlockSymbol := k.RLock(symbolLockKey(symbol))
	unlockPosition := k.Lock(positionLockKey(symbol, *userID))
	return func() {
		unlockPosition()
		unlockSymbol()
	}
}

func symbolLockKey(symbol string) string {
	return "symbol:" + symbol
}

// positionLockKey names the (symbol, user) scope of a sell
func positionLockKey(symbol string, userID int64) string {
	return fmt.Sprintf("position:%s|%d", symbol, userID)
}
