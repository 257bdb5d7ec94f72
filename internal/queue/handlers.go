package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

var emptyPayload = json.RawMessage("{}")

// TaskTypePresignedSessionSweep periodically marks presigned-upload
// sessions past expires_at as expired.
const TaskTypePresignedSessionSweep = "presigned_session_sweep"

// TaskTypeMediaExpirySweep sweeps media whose retention window has
// passed.
const TaskTypeMediaExpirySweep = "media_expiry_sweep"

// PresignedSessionSweepHandler builds the handler for
// TaskTypePresignedSessionSweep, expressed as a queue task instead of its
// own ticker so it shares the dispatch loop's concurrency control.
func PresignedSessionSweepHandler(store *db.Store, log *zap.SugaredLogger) Handler {
	return func(ctx context.Context, task *models.Task) (Result, error) {
		n, err := store.ExpirePresignedSessions(ctx, 500)
		if err != nil {
			return Result{}, err
		}
		log.Infof("queue: expired %d presigned sessions", n)
		return Result{}, nil
	}
}

// MediaExpirySweepHandler builds the handler for TaskTypeMediaExpirySweep.
func MediaExpirySweepHandler(store *db.Store, log *zap.SugaredLogger) Handler {
	return func(ctx context.Context, task *models.Task) (Result, error) {
		ids, err := store.ExpireMedia(ctx, 500)
		if err != nil {
			return Result{}, err
		}
		if len(ids) > 0 {
			log.Infof("queue: expired %d media rows", len(ids))
		}
		return Result{}, nil
	}
}

// RegisterSweepHandlers wires the scheduled sweep handlers into registry,
// the composition root's default registration.
func RegisterSweepHandlers(registry *Registry, store *db.Store, log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	registry.Register(TaskTypePresignedSessionSweep, PresignedSessionSweepHandler(store, log))
	registry.Register(TaskTypeMediaExpirySweep, MediaExpirySweepHandler(store, log))
}

// Scheduler periodically submits the recurring sweep tasks, one
// submission per active tenant: a cron expression if configured, else a
// fixed interval ticker.
type Scheduler struct {
	Store *db.Store
	Log   *zap.SugaredLogger

	cron *cron.Cron
}

func (s *Scheduler) logger() *zap.SugaredLogger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop().Sugar()
}

// Run starts the recurring sweep submission. If cronExpr is non-empty it
// is parsed as a standard five-field cron expression; otherwise sweeps run
// every interval. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, cronExpr string, interval time.Duration) error {
	if cronExpr != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(cronExpr, func() { s.submitAll(ctx) })
		if err != nil {
			return fmt.Errorf("invalid sweep cron expression: %w", err)
		}
		s.cron.Start()
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		return nil
	}

	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.submitAll(ctx)
		}
	}
}

func (s *Scheduler) submitAll(ctx context.Context) {
	tenantIDs, err := s.Store.ListActiveTenantIDs(ctx)
	if err != nil {
		s.logger().Warnf("scheduler: list active tenants failed: %v", err)
		return
	}
	for _, id := range tenantIDs {
		s.SubmitSweeps(ctx, id)
	}
}

func (s *Scheduler) SubmitSweeps(ctx context.Context, tenantID string) {
	if err := s.Store.SubmitTask(ctx, &models.Task{
		TenantID: tenantID,
		Type:     TaskTypePresignedSessionSweep,
		Payload:  emptyPayload,
		Priority: models.TaskPriorityLow,
	}); err != nil {
		s.logger().Warnf("scheduler: submit presigned sweep failed: %v", err)
	}
	if err := s.Store.SubmitTask(ctx, &models.Task{
		TenantID: tenantID,
		Type:     TaskTypeMediaExpirySweep,
		Payload:  emptyPayload,
		Priority: models.TaskPriorityLow,
	}); err != nil {
		s.logger().Warnf("scheduler: submit media expiry sweep failed: %v", err)
	}
}
