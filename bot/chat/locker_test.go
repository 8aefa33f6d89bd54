package chat

import (
	"sync"
	"testing"
)

func TestUserLocksSerializeAndCleanup(t *testing.T) {
	locks := NewUserLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("u1")
			counter++
			locks.Unlock("u1")
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if locks.Len() != 0 {
		t.Errorf("locks not released: %d", locks.Len())
	}
	locks.Unlock("unknown")
}
