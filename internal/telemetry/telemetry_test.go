package telemetry

import (
	"testing"
	"time"

	"github.com/jeremybastin1207/mindia-go/internal/config"
)

func TestShouldKeepAlwaysKeepOverridesEverything(t *testing.T) {
	s := NewSampler(config.TelemetryConfig{AlwaysKeep: true, SampleRate: 0})
	if !s.shouldKeep(Event{Status: 200}) {
		t.Fatalf("shouldKeep() = false with AlwaysKeep set")
	}
}

func TestShouldKeepServerErrorsAlwaysKept(t *testing.T) {
	s := NewSampler(config.TelemetryConfig{SampleRate: 0})
	if !s.shouldKeep(Event{Status: 503}) {
		t.Fatalf("shouldKeep() = false for a 5xx status")
	}
}

func TestShouldKeepClientErrorsRespectFlag(t *testing.T) {
	withoutFlag := NewSampler(config.TelemetryConfig{SampleRate: 0, KeepClientErrors: false})
	if withoutFlag.shouldKeep(Event{Status: 404, TenantID: "t", RequestID: "r", Path: "/p"}) {
		t.Fatalf("shouldKeep() = true for a 4xx with KeepClientErrors disabled and SampleRate 0")
	}

	withFlag := NewSampler(config.TelemetryConfig{SampleRate: 0, KeepClientErrors: true})
	if !withFlag.shouldKeep(Event{Status: 404}) {
		t.Fatalf("shouldKeep() = false for a 4xx with KeepClientErrors enabled")
	}
}

func TestShouldKeepSlowRequests(t *testing.T) {
	s := NewSampler(config.TelemetryConfig{SampleRate: 0, SlowThresholdMS: 1000})
	slow := Event{Status: 200, Duration: 2 * time.Second}
	if !s.shouldKeep(slow) {
		t.Fatalf("shouldKeep() = false for a request slower than the threshold")
	}

	fast := Event{Status: 200, Duration: 10 * time.Millisecond, TenantID: "t", RequestID: "r", Path: "/p"}
	if s.shouldKeep(fast) {
		t.Fatalf("shouldKeep() = true for a fast request with SampleRate 0")
	}
}

func TestShouldKeepVIPTenant(t *testing.T) {
	s := NewSampler(config.TelemetryConfig{SampleRate: 0, VIPTenantIDs: map[string]bool{"acme": true}})
	if !s.shouldKeep(Event{Status: 200, TenantID: "acme"}) {
		t.Fatalf("shouldKeep() = false for a VIP tenant")
	}
}

func TestShouldKeepAllowlistedPath(t *testing.T) {
	s := NewSampler(config.TelemetryConfig{SampleRate: 0, KeepPaths: map[string]bool{"/healthz": true}})
	if !s.shouldKeep(Event{Status: 200, Path: "/healthz"}) {
		t.Fatalf("shouldKeep() = false for an allow-listed path")
	}
}

func TestShouldKeepFullSampleRateKeepsEverything(t *testing.T) {
	s := NewSampler(config.TelemetryConfig{SampleRate: 1.0})
	if !s.shouldKeep(Event{Status: 200, TenantID: "t", RequestID: "r", Path: "/p"}) {
		t.Fatalf("shouldKeep() = false with SampleRate 1.0")
	}
}

func TestHashFractionIsDeterministic(t *testing.T) {
	a := hashFraction("tenant", "req-1", "/media")
	b := hashFraction("tenant", "req-1", "/media")
	if a != b {
		t.Fatalf("hashFraction() is not deterministic: %v != %v", a, b)
	}
	if a < 0 || a >= 1 {
		t.Fatalf("hashFraction() = %v, want a value in [0, 1)", a)
	}
}

func TestHashFractionVariesByKey(t *testing.T) {
	a := hashFraction("tenant", "req-1", "/media")
	b := hashFraction("tenant", "req-2", "/media")
	if a == b {
		t.Fatalf("hashFraction() produced identical fractions for different request ids")
	}
}
