// Package telemetry implements the canonical per-request "wide event": a
// plain struct assembled over the life of a request by the HTTP layer and
// handed to Emit on completion, which applies the tail-sampling decision
// and logs via zap at Info, or drops it with no log call at all.
package telemetry

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/config"
)

// Event captures one request's complete context: request id, path,
// method, tenant, user role, duration, status, plus whatever business
// context handlers attach via Extra.
type Event struct {
	RequestID string
	Method    string
	Path      string
	TenantID  string
	UserRole  string
	Status    int
	Duration  time.Duration
	Extra     map[string]any
}

// Sampler holds the tail-sampling configuration: keep all server errors,
// optionally client errors, slow requests, VIP tenants, allow-listed
// paths, else a deterministic hash-sampled fraction.
type Sampler struct {
	cfg config.TelemetryConfig
}

func NewSampler(cfg config.TelemetryConfig) *Sampler {
	return &Sampler{cfg: cfg}
}

// shouldKeep evaluates the keep rules in precedence order.
func (s *Sampler) shouldKeep(e Event) bool {
	if s.cfg.AlwaysKeep {
		return true
	}
	if e.Status >= 500 {
		return true
	}
	if s.cfg.KeepClientErrors && e.Status >= 400 && e.Status < 500 {
		return true
	}
	if s.cfg.SlowThresholdMS > 0 && e.Duration >= time.Duration(s.cfg.SlowThresholdMS)*time.Millisecond {
		return true
	}
	if s.cfg.VIPTenantIDs[e.TenantID] {
		return true
	}
	if s.cfg.KeepPaths[e.Path] {
		return true
	}
	return hashFraction(e.TenantID, e.RequestID, e.Path) < s.cfg.SampleRate
}

// hashFraction maps (tenant_id, request_id, path) deterministically into
// [0,1) via SHA-256, so the same key always samples the same way.
func hashFraction(tenantID, requestID, path string) float64 {
	sum := sha256.Sum256([]byte(tenantID + "|" + requestID + "|" + path))
	v := binary.BigEndian.Uint64(sum[:8])
	return float64(v>>11) / (1 << 53)
}

// Emit applies the tail-sampling decision and logs the kept events at
// Info. Dropped events produce no log call at all.
func (s *Sampler) Emit(logger *zap.Logger, e Event) {
	if !s.shouldKeep(e) {
		return
	}

	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.String("tenant_id", e.TenantID),
		zap.String("user_role", e.UserRole),
		zap.Int("status", e.Status),
		zap.Duration("duration", e.Duration),
	}
	for k, v := range e.Extra {
		fields = append(fields, zap.Any(k, v))
	}
	logger.Info("request", fields...)
}
