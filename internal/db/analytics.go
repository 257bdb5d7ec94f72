package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/analytics"
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

// WriteAnalytics persists a drained batch from the analytics sink in one
// round trip. Implements analytics.Writer.
func (s *Store) WriteAnalytics(ctx context.Context, records []analytics.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
		INSERT INTO request_analytics (tenant_id, path, method, status, duration_ms, bytes_in, bytes_out, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, r := range records {
		batch.Queue(q, r.TenantID, r.Path, r.Method, r.Status, r.DurationMS, r.BytesIn, r.BytesOut, r.OccurredAt)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return mdlerr.Database("write analytics batch", err)
	}
	return nil
}
