package core

import (
	"sync"
	"testing"
)

func TestKeyedMutex_serializesPerKey(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	counters := map[string]int{"a": 0, "b": 0}

	for i := 0; i < 100; i++ {
		for key := range counters {
			key := key
			wg.Add(1)
			go func() {
				defer wg.Done()
				km.Lock(key)
				defer km.Unlock(key)
				counters[key]++
			}()
		}
	}
	wg.Wait()

	for key, count := range counters {
		if count != 100 {
			t.Errorf("counters[%q] = %d; want 100", key, count)
		}
	}
}

func TestKeyedMutex_releasesEntries(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("lone")
	if len(km.entries) != 1 {
		t.Fatalf("len(entries) = %d; want 1", len(km.entries))
	}
	km.Unlock("lone")
	if len(km.entries) != 0 {
		t.Errorf("len(entries) = %d; want 0", len(km.entries))
	}
}

func TestKeyedMutex_unlockUnlockedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on Unlock of unlocked key")
		}
	}()
	NewKeyedMutex().Unlock("nope")
}
