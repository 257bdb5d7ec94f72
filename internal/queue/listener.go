package queue

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Listen holds a dedicated connection LISTENing on mindia_new_task and
// calls pool.Trigger() on every notification, so the dispatch loop wakes
// immediately instead of waiting for the next poll tick.
func Listen(ctx context.Context, connPool *pgxpool.Pool, pool *Pool, log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if err := listenOnce(ctx, connPool, pool); err != nil {
			log.Warnf("queue: listen error, reconnecting: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func listenOnce(ctx context.Context, connPool *pgxpool.Pool, pool *Pool) error {
	conn, err := connPool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN mindia_new_task"); err != nil {
		return err
	}

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return err
		}
		pool.Trigger()
	}
}
