package server

import (
	"context"
	"time"

	"loginpanel/internal/logger"
	"loginpanel/internal/services"
)

// Sweeper periodically removes expired challenges, sessions and locks.
type Sweeper struct {
	tokens   services.TokenServicer
	lockout  services.LockoutServicer
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval disables Run.
func NewSweeper(tokens services.TokenServicer, lockout services.LockoutServicer, interval time.Duration) *Sweeper {
	return &Sweeper{tokens: tokens, lockout: lockout, interval: interval}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures are logged and retried on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	log := logger.Get()

	result, err := s.tokens.SweepExpired(ctx)
	if err != nil {
		log.Errorw("failed to sweep expired tokens", "error", err)
	} else if result.Challenges > 0 || result.Sessions > 0 {
		log.Infow("swept expired tokens",
			"challenges", result.Challenges,
			"sessions", result.Sessions,
		)
	}

	locks, err := s.lockout.SweepExpired(ctx)
	if err != nil {
		log.Errorw("failed to sweep expired locks", "error", err)
	} else if locks > 0 {
		log.Infow("swept expired locks", "locks", locks)
	}
}
