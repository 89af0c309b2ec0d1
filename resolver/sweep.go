package resolver

import (
	"context"
	"log"
	"time"
)

// GrantSweeper demotes direct grants whose expiry has passed.
type GrantSweeper interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// Sweeper periodically expires due grants. Advisory only: the resolver checks
// expiry live at query time, so a missed sweep never grants stale access.
type Sweeper struct {
	grants   GrantSweeper
	interval time.Duration
	logger   *log.Logger
}

// NewSweeper builds a sweeper; interval defaults to one hour when
// non-positive.
func NewSweeper(grants GrantSweeper, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{grants: grants, interval: interval, logger: logger}
}

func (s *Sweeper) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Failures are logged and retried on the next tick, never fatal.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.grants.ExpireDue(ctx)
	if err != nil {
		s.logf("expiration sweep failed, retrying next tick: %v", err)
		return
	}
	if n > 0 {
		s.logf("expiration sweep demoted %d grant(s)", n)
	}
}
