package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes expired temporal grants.
type Sweeper struct {
	admin    *Admin
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper running every interval.
func NewSweeper(admin *Admin, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{admin: admin, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.admin.SweepExpired(ctx); err != nil {
		s.logger.Error("grant sweep failed", "error", err)
	}
}
