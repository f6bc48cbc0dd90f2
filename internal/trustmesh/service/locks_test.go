package service

import (
	"sync"
	"testing"
	"time"
)

func TestKeyLocksSerialiseOneKey(t *testing.T) {
	locks := newKeyLocks()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("poll_1")
			defer unlock()
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("holders at once = %d, want 1", maxSeen)
	}
	if got := locks.held(); got != 0 {
		t.Fatalf("held = %d, want 0", got)
	}
}

func TestKeyLocksIndependentKeys(t *testing.T) {
	locks := newKeyLocks()
	unlockA := locks.lock("A")
	done := make(chan struct{})
	go func() {
		unlock := locks.lock("B")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on B waited for A")
	}
	if got := locks.held(); got != 1 {
		t.Fatalf("held = %d, want 1", got)
	}
	unlockA()
	if got := locks.held(); got != 0 {
		t.Fatalf("held = %d, want 0", got)
	}
}
