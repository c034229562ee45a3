package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/legal-service/internal/service"
)

// Sweeper re-classifies open requests.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Locker guards a sweep so one replica runs it at a time.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// SLASweeperConfig tunes the sweep loop.
type SLASweeperConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
	Timeout  time.Duration
}

// SLASweeper runs the SLA sweep on a ticker. A nil Locker means every
// replica sweeps, which is only safe with a single instance.
type SLASweeper struct {
	sweeper Sweeper
	lock    Locker
	cfg     SLASweeperConfig
	logger  *zap.Logger
}

func NewSLASweeper(sweeper Sweeper, lock Locker, cfg SLASweeperConfig, logger *zap.Logger) *SLASweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLASweeper{sweeper: sweeper, lock: lock, cfg: cfg, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *SLASweeper) Run(ctx context.Context) {
	w.logger.Info("sla sweeper started", zap.Duration("interval", w.cfg.Interval))
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, _, err := w.RunOnce(ctx); err != nil {
			w.logger.Warn("sla sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("sla sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single guarded sweep. ran is false when another holder
// owns the lock.
func (w *SLASweeper) RunOnce(ctx context.Context) (service.SweepResult, bool, error) {
	if ctx.Err() != nil {
		return service.SweepResult{}, false, ctx.Err()
	}
	if w.lock != nil {
		acquired, err := w.lock.Acquire(ctx, w.cfg.LockTTL)
		if err != nil {
			return service.SweepResult{}, false, err
		}
		if !acquired {
			w.logger.Debug("sla sweep skipped; lock held elsewhere")
			return service.SweepResult{}, false, nil
		}
		defer func() {
			if err := w.lock.Release(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("release sweep lock failed", zap.Error(err))
			}
		}()
	}

	sweepCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()
	result, err := w.sweeper.Sweep(sweepCtx)
	return result, true, err
}
