package core

import "sync"

// KeyedMutex provides mutual exclusion per arbitrary string key.
// Entries are reference-counted and removed once the last waiter is gone,
// so the key space may be unbounded.
//
// Callers acquiring several keys must do so in sorted order to stay
// deadlock-free.
type KeyedMutex struct {
	mutex   sync.Mutex
	entries map[string]*keyedMutexEntry
}

type keyedMutexEntry struct {
	mutex   sync.Mutex
	waiters int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedMutexEntry)}
}

func (km *KeyedMutex) Lock(key string) {
	km.mutex.Lock()
	entry, ok := km.entries[key]
	if !ok {
		entry = new(keyedMutexEntry)
		km.entries[key] = entry
	}
	entry.waiters++
	km.mutex.Unlock()

	entry.mutex.Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	km.mutex.Lock()
	entry, ok := km.entries[key]
	if !ok {
		km.mutex.Unlock()
		panic("core: KeyedMutex.Unlock of unlocked key " + key)
	}
	entry.waiters--
	if entry.waiters == 0 {
		delete(km.entries, key)
	}
	km.mutex.Unlock()

	entry.mutex.Unlock()
}
