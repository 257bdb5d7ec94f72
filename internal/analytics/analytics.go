// Package analytics buffers per-request analytics records behind a
// bounded channel so request handling never blocks on analytics
// submission: overflow logs a warning and discards the record.
package analytics

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity bounds the in-memory queue.
const DefaultCapacity = 10000

// Record is a single analytics datum, assembled by the HTTP layer.
type Record struct {
	TenantID   string
	Path       string
	Method     string
	Status     int
	DurationMS int64
	BytesIn    int64
	BytesOut   int64
	OccurredAt time.Time
}

// Writer persists drained records; the concrete implementation (DB table,
// external collector) is supplied by the application.
type Writer interface {
	WriteAnalytics(ctx context.Context, records []Record) error
}

// Sink accepts records without ever blocking the caller. Run drains the
// channel in batches until ctx is cancelled.
type Sink struct {
	ch        chan Record
	writer    Writer
	log       *zap.SugaredLogger
	batchSize int
	dropped   atomic.Int64
}

func NewSink(writer Writer, log *zap.SugaredLogger, capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sink{
		ch:        make(chan Record, capacity),
		writer:    writer,
		log:       log,
		batchSize: 100,
	}
}

// Submit enqueues a record, dropping it when the buffer is full. It never
// blocks, so request handlers can call it on the hot path.
func (s *Sink) Submit(r Record) {
	select {
	case s.ch <- r:
	default:
		if s.dropped.Add(1)%1000 == 1 {
			s.log.Warnf("analytics: buffer full, dropping records (%d dropped so far)", s.dropped.Load())
		}
	}
}

// Dropped reports how many records have been discarded since startup.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Run drains the sink until ctx is cancelled, flushing either when a full
// batch accumulates or on the ticker.
func (s *Sink) Run(ctx context.Context, flushInterval time.Duration) {
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.writer.WriteAnalytics(ctx, batch); err != nil {
			s.log.Warnf("analytics: write batch failed: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case r := <-s.ch:
			batch = append(batch, r)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
