// Package scheduler runs periodic maintenance jobs against the entity store.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finanzas/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

// SweeperConfig holds retention sweeper configuration
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Enabled:  true,
		Interval: time.Hour,
		Timeout:  time.Minute,
	}
}

// Validate checks the sweeper configuration
func (c SweeperConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Sweeper periodically purges expired items (idempotency records) from a
// store that keeps rows past their TTL.
type Sweeper struct {
	purger store.Purger
	config SweeperConfig
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  sync.Mutex
}

// NewSweeper creates a new sweeper instance
func NewSweeper(purger store.Purger, config SweeperConfig, logger *zap.Logger) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{purger: purger, config: config, logger: logger}, nil
}

// Start launches the sweep loop. It is a no-op when disabled or running.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Retention sweeper disabled")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Retention sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("timeout", s.config.Timeout),
	)
	return nil
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Retention sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Retention sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunOnce purges expired items now and returns how many were removed
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	if !s.sweeping.TryLock() {
		return 0, ErrSweepInProgress
	}
	defer s.sweeping.Unlock()

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.purger.PurgeExpired(sweepCtx)
	if err != nil {
		s.logger.Error("Retention sweep failed", zap.Error(err))
		return 0, err
	}
	s.logger.Info("Retention sweep completed",
		zap.Int64("purged", n),
		zap.Duration("duration", time.Since(start)),
	)
	return n, nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Retention sweeper loop stopping")
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
