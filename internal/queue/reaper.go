package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/db"
)

// Reaper reverts Running tasks whose last update predates the grace
// period back to Pending, covering crashed workers.
type Reaper struct {
	Store       *db.Store
	Log         *zap.SugaredLogger
	GracePeriod time.Duration
	BatchSize   int
}

func (r *Reaper) logger() *zap.SugaredLogger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop().Sugar()
}

func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reapOnce(ctx)
		}
	}
}

func (r *Reaper) reapOnce(ctx context.Context) {
	batch := r.BatchSize
	if batch <= 0 {
		batch = 100
	}
	n, err := r.Store.ReapStale(ctx, r.GracePeriod, batch)
	if err != nil {
		r.logger().Warnf("queue: reap stale tasks failed: %v", err)
		return
	}
	if n > 0 {
		r.logger().Infof("queue: reaped %d stale tasks", n)
	}
}
