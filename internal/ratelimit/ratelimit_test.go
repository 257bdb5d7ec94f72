package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowRespectsBurst(t *testing.T) {
	registry := NewRegistry(Limits{
		"generate_embedding": {PerSecond: 1, Burst: 2},
	})

	if !registry.Allow("generate_embedding") {
		t.Fatalf("1st Allow() = false, want true")
	}
	if !registry.Allow("generate_embedding") {
		t.Fatalf("2nd Allow() = false, want true")
	}
	if registry.Allow("generate_embedding") {
		t.Fatalf("3rd Allow() = true, want false (burst exhausted)")
	}
}

func TestAllowUnlimitedForUnconfiguredTaskType(t *testing.T) {
	registry := NewRegistry(Limits{})
	for i := 0; i < 100; i++ {
		if !registry.Allow("unconfigured_task") {
			t.Fatalf("Allow() on unconfigured task type = false at iteration %d, want true", i)
		}
	}
}

func TestLimiterForIsCachedPerTaskType(t *testing.T) {
	registry := NewRegistry(Limits{"x": {PerSecond: 5, Burst: 5}})
	first := registry.limiterFor("x")
	second := registry.limiterFor("x")
	if first != second {
		t.Fatalf("limiterFor returned distinct limiters for the same task type")
	}
}

func TestAcquireReturnsWhenContextCancelled(t *testing.T) {
	registry := NewRegistry(Limits{"slow": {PerSecond: 0.001, Burst: 1}})
	// Drain the single burst token so the next Acquire must wait.
	registry.Allow("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := registry.Acquire(ctx, "slow"); err == nil {
		t.Fatalf("Acquire() error = nil, want context deadline error")
	}
}
