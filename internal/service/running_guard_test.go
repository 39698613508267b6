package service

import (
	"context"
	"testing"
	"time"
)

func TestInflightGuard_TryLock(t *testing.T) {
	var g inflightGuard
	if !g.TryLock("a") {
		t.Fatal("first lock should succeed")
	}
	if g.TryLock("a") {
		t.Fatal("second lock on same key should fail")
	}
	if !g.TryLock("b") {
		t.Fatal("different key should lock")
	}
	if n := g.Running(); n != 2 {
		t.Errorf("Running() = %d, want 2", n)
	}
	g.Unlock("a")
	g.Unlock("b")
	if !g.TryLock("a") {
		t.Fatal("lock after unlock should succeed")
	}
	g.Unlock("a")
}

func TestInflightGuard_WaitAll(t *testing.T) {
	var g inflightGuard
	g.TryLock("job")

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(released)
		g.Unlock("job")
	}()

	g.WaitAll(context.Background())
	select {
	case <-released:
	default:
		t.Fatal("WaitAll returned before the job finished")
	}

	g.TryLock("stuck")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	g.WaitAll(ctx) // must return on ctx expiry
	g.Unlock("stuck")
}
