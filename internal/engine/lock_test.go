package engine

import (
	"sync"
	"testing"
)

func TestBuildLockSingleWinner(t *testing.T) {
	var lock buildLock

	if !lock.TryAcquire() {
		t.Fatal("first acquire must succeed")
	}
	if lock.TryAcquire() {
		t.Fatal("second acquire must fail while held")
	}
	lock.Release()
	if !lock.TryAcquire() {
		t.Fatal("acquire after release must succeed")
	}
	lock.Release()
}

func TestBuildLockUnderContention(t *testing.T) {
	var lock buildLock
	var wg sync.WaitGroup
	winners := make(chan struct{}, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire() {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	if count != 1 {
		t.Errorf("%d goroutines acquired the lock, want exactly 1", count)
	}
}
