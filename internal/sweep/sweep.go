package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store expires stale pending orders.
type Store interface {
	ExpireStaleOrders(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper periodically moves pending orders the gateway never called back
// for to the expired terminal status. Without it, an abandoned checkout
// leaves its order pending forever once the correlation record's TTL runs out.
type Sweeper struct {
	store    Store
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
}

func New(store Store, interval, maxAge time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Starting pending-order sweep",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping pending-order sweep")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.store.ExpireStaleOrders(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("Order expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Expired stale pending orders", zap.Int64("count", n))
	}
}
