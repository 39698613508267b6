// Package simulate holds the latency and randomness used to fake database
// round-trips. Everything is injectable so tests run instantly and
// deterministically.
package simulate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Policy configures simulated latencies and outcomes.
type Policy struct {
	ConnectDelay     time.Duration `koanf:"connect_delay"`
	TestDelay        time.Duration `koanf:"test_delay"`
	ExecuteDelayMin  time.Duration `koanf:"execute_delay_min"`
	ExecuteDelayMax  time.Duration `koanf:"execute_delay_max"`
	SchemaDelay      time.Duration `koanf:"schema_delay"`
	RefreshDelay     time.Duration `koanf:"refresh_delay"`
	TableDelay       time.Duration `koanf:"table_delay"`
	TestSuccessRate  float64       `koanf:"test_success_rate"`
	MinExecutionMs   int           `koanf:"min_execution_ms"`
	MaxExecutionMs   int           `koanf:"max_execution_ms"`
	MaxAffectedRows  int           `koanf:"max_affected_rows"`
	MeasureWallClock bool          `koanf:"measure_wall_clock"`
}

// DefaultPolicy mirrors the latencies of the hosted demo.
func DefaultPolicy() Policy {
	return Policy{
		ConnectDelay:    800 * time.Millisecond,
		TestDelay:       time.Second,
		ExecuteDelayMin: 500 * time.Millisecond,
		ExecuteDelayMax: 1500 * time.Millisecond,
		SchemaDelay:     800 * time.Millisecond,
		RefreshDelay:    time.Second,
		TableDelay:      400 * time.Millisecond,
		TestSuccessRate: 0.8,
		MinExecutionMs:  50,
		MaxExecutionMs:  550,
		MaxAffectedRows: 10,
	}
}

// Instant returns p with every delay zeroed.
func (p Policy) Instant() Policy {
	p.ConnectDelay = 0
	p.TestDelay = 0
	p.ExecuteDelayMin = 0
	p.ExecuteDelayMax = 0
	p.SchemaDelay = 0
	p.RefreshDelay = 0
	p.TableDelay = 0
	return p
}

// Source is the randomness the simulator draws from.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// Simulator produces latencies and pseudo-random outcomes from a Policy.
// It is safe for concurrent use.
type Simulator struct {
	policy Policy
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	src Source
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithSeed makes the simulator deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.src = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithSource replaces the random source.
func WithSource(src Source) Option {
	return func(s *Simulator) { s.src = src }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithSleeper replaces the context-aware sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Simulator) { s.sleep = sleep }
}

// New creates a Simulator.
func New(p Policy, opts ...Option) *Simulator {
	s := &Simulator{
		policy: p,
		now:    time.Now,
		sleep:  Sleep,
		src:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy returns the active policy.
func (s *Simulator) Policy() Policy {
	return s.policy
}

// Now returns the simulator's current time.
func (s *Simulator) Now() time.Time {
	return s.now()
}

// Connect waits the simulated connect latency.
func (s *Simulator) Connect(ctx context.Context) error {
	return s.sleep(ctx, s.policy.ConnectDelay)
}

// Schema waits the simulated schema load latency.
func (s *Simulator) Schema(ctx context.Context) error {
	return s.sleep(ctx, s.policy.SchemaDelay)
}

// Refresh waits the simulated schema refresh latency.
func (s *Simulator) Refresh(ctx context.Context) error {
	return s.sleep(ctx, s.policy.RefreshDelay)
}

// Table waits the simulated single-table lookup latency.
func (s *Simulator) Table(ctx context.Context) error {
	return s.sleep(ctx, s.policy.TableDelay)
}

// Test waits the simulated test latency and reports whether the test passes.
func (s *Simulator) Test(ctx context.Context) (bool, error) {
	if err := s.sleep(ctx, s.policy.TestDelay); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64() < s.policy.TestSuccessRate, nil
}

// Execute waits a random latency in [ExecuteDelayMin, ExecuteDelayMax] and
// returns the reported execution time in milliseconds. With
// MeasureWallClock the reported time is the measured wait; otherwise it is
// drawn from [MinExecutionMs, MaxExecutionMs].
func (s *Simulator) Execute(ctx context.Context) (int, error) {
	delay := s.policy.ExecuteDelayMin
	if span := s.policy.ExecuteDelayMax - s.policy.ExecuteDelayMin; span > 0 {
		delay += time.Duration(s.intn(int(span)))
	}

	start := s.now()
	if err := s.sleep(ctx, delay); err != nil {
		return 0, err
	}
	if s.policy.MeasureWallClock {
		return int(s.now().Sub(start).Milliseconds()), nil
	}
	return s.between(s.policy.MinExecutionMs, s.policy.MaxExecutionMs), nil
}

// AffectedRows returns a pseudo-random row count in [1, MaxAffectedRows].
func (s *Simulator) AffectedRows() int {
	return s.between(1, s.policy.MaxAffectedRows)
}

// between returns a value in [lo, hi]; hi <= lo yields lo.
func (s *Simulator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.intn(hi-lo+1)
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.IntN(n)
}
