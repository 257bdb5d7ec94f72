// Package ratelimit provides per-task-type token buckets shared across
// queue workers.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limits maps a task type to its configured (rate-per-second, burst) pair.
// A task type absent from the map is unlimited.
type Limits map[string]Limit

type Limit struct {
	PerSecond float64
	Burst     int
}

// Registry lazily creates and caches one *rate.Limiter per task type.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limits   Limits
}

func NewRegistry(limits Limits) *Registry {
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		limits:   limits,
	}
}

func (r *Registry) limiterFor(taskType string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[taskType]; ok {
		return l
	}
	cfg, ok := r.limits[taskType]
	var l *rate.Limiter
	if !ok {
		l = rate.NewLimiter(rate.Inf, 0)
	} else {
		l = rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst)
	}
	r.limiters[taskType] = l
	return l
}

// Acquire blocks until a token for taskType is available or ctx is
// cancelled, used before dispatching a claimed task's handler.
func (r *Registry) Acquire(ctx context.Context, taskType string) error {
	return r.limiterFor(taskType).Wait(ctx)
}

// Allow is the non-blocking variant.
func (r *Registry) Allow(taskType string) bool {
	return r.limiterFor(taskType).Allow()
}
