package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// inflightGuard: tracks running work so shutdown can wait on it
// ─────────────────────────────────────────────────────────────

// inflightGuard marks keys as running. A key can be held by only one caller
// at a time; use a unique key per unit of work to allow overlap.
type inflightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as running. It returns false if key is already running.
func (g *inflightGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must be called after TryLock returned true.
func (g *inflightGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// Running reports how many keys are currently held.
func (g *inflightGuard) Running() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}

// WaitAll blocks until all running work completes or ctx is cancelled.
func (g *inflightGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
