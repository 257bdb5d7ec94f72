package queue

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/ratelimit"
)

// Pool is the fixed-size worker pool: a counting semaphore arbitrates
// MaxWorkers logical workers, and the dispatch loop alternates between a
// LISTEN/NOTIFY-driven trigger channel and a periodic poll timer.
type Pool struct {
	Store    *db.Store
	Registry *Registry
	Limits   *ratelimit.Registry
	Log      *zap.SugaredLogger

	MaxWorkers int

	// OutcomeNotifier, if set, is told about terminal task outcomes for
	// media-bearing task types so file.processed/file.failed webhooks
	// can fire.
	OutcomeNotifier OutcomeNotifier

	triggerCh chan struct{}
	sem       chan struct{}
}

// OutcomeNotifier decouples the dispatch loop from the concrete webhook
// engine, mirroring upload.Notifier's pluggable-collaborator shape.
type OutcomeNotifier interface {
	NotifyTaskOutcome(ctx context.Context, task *models.Task, failureReason string)
}

func NewPool(store *db.Store, registry *Registry, limits *ratelimit.Registry, log *zap.SugaredLogger, maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pool{
		Store:      store,
		Registry:   registry,
		Limits:     limits,
		Log:        log,
		MaxWorkers: maxWorkers,
		triggerCh:  make(chan struct{}, 1),
		sem:        make(chan struct{}, maxWorkers),
	}
}

// Trigger wakes the dispatch loop immediately; called by the NOTIFY
// listener when a new task lands.
func (p *Pool) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Run drives the dispatch loop until ctx is cancelled.
func (p *Pool) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drainClaimable(ctx)
		case <-p.triggerCh:
			p.drainClaimable(ctx)
		}
	}
}

// drainClaimable keeps claiming and dispatching until the queue goes dry
// or every worker slot is busy, rather than only ever claiming one task
// per wake (which would starve the queue under a single poll tick).
func (p *Pool) drainClaimable(ctx context.Context) {
	for {
		select {
		case p.sem <- struct{}{}:
		default:
			return
		}

		task, err := p.Store.ClaimTask(ctx)
		if err != nil {
			p.Log.Warnf("queue: claim error: %v", err)
			<-p.sem
			return
		}
		if task == nil {
			<-p.sem
			return
		}

		go func() {
			defer func() { <-p.sem }()
			p.dispatch(ctx, task)
		}()
	}
}

// dispatch re-checks dependencies, takes a rate-limit token, and runs
// the handler under the task's timeout.
func (p *Pool) dispatch(ctx context.Context, task *models.Task) {
	if len(task.DependsOn) > 0 {
		ok, err := p.Store.DependenciesCompleted(ctx, task.DependsOn)
		if err != nil || !ok {
			if err := p.Store.RevertToPending(ctx, task.ID); err != nil {
				p.Log.Warnf("queue: revert to pending failed: %v", err)
			}
			return
		}
	}

	if p.Limits != nil {
		if err := p.Limits.Acquire(ctx, task.Type); err != nil {
			if err := p.Store.RevertToPending(ctx, task.ID); err != nil {
				p.Log.Warnf("queue: revert to pending failed: %v", err)
			}
			return
		}
	}

	handler, err := p.Registry.Resolve(task.Type)
	if err != nil {
		p.failTerminally(ctx, task, "no handler registered")
		return
	}

	timeout := time.Duration(task.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(models.DefaultTaskTimeoutSeconds) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan handlerOutcome, 1)
	go func() {
		result, err := handler(runCtx, task)
		resultCh <- handlerOutcome{result: result, err: err}
	}()

	select {
	case outcome := <-resultCh:
		p.handleOutcome(ctx, task, outcome.result, outcome.err, false)
	case <-runCtx.Done():
		p.handleOutcome(ctx, task, Result{}, runCtx.Err(), true)
	}
}

type handlerOutcome struct {
	result Result
	err    error
}

// handleOutcome records the handler's result: success completes the
// task, unrecoverable errors fail it immediately, recoverable errors
// retry with exponential backoff until max_retries.
func (p *Pool) handleOutcome(ctx context.Context, task *models.Task, result Result, err error, timedOut bool) {
	if err == nil {
		out := result.Output
		if out == nil {
			out = json.RawMessage("null")
		}
		if ferr := p.Store.CompleteTask(ctx, task.ID, out); ferr != nil {
			p.Log.Warnf("queue: complete task failed: %v", ferr)
		}
		if p.OutcomeNotifier != nil {
			p.OutcomeNotifier.NotifyTaskOutcome(ctx, task, "")
		}
		return
	}

	unrecoverable := result.Unrecoverable
	if mdErr, ok := mdlerr.As(err); ok {
		if v, present := mdErr.Extra["unrecoverable"]; present {
			if b, ok := v.(bool); ok {
				unrecoverable = b
			}
		}
	}

	if unrecoverable && !timedOut {
		p.failTerminally(ctx, task, "unrecoverable")
		return
	}

	canRetry := task.RetryCount < task.MaxRetries
	if !canRetry {
		reason := "retry exhausted"
		if timedOut {
			reason = "timed out"
		}
		p.failTerminally(ctx, task, reason)
		return
	}

	nextAt := time.Now().Add(task.NextBackoff())
	if ferr := p.Store.ScheduleRetry(ctx, task.ID, nextAt); ferr != nil {
		p.Log.Warnf("queue: schedule retry failed: %v", ferr)
	}
}

func (p *Pool) failTerminally(ctx context.Context, task *models.Task, reason string) {
	if err := p.Store.FailTask(ctx, task.ID, reason); err != nil {
		p.Log.Warnf("queue: fail task failed: %v", err)
	}
	if p.OutcomeNotifier != nil {
		p.OutcomeNotifier.NotifyTaskOutcome(ctx, task, reason)
	}
}
