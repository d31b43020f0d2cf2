package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"machine-ledger-backend/internal/observe"
)

// instrumentedStore throttles, traces and measures every call to next.
type instrumentedStore struct {
	next    Store
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// Instrument wraps next with a token-bucket limiter (nil for none), an
// OpenTelemetry span and prometheus metrics per call.
func Instrument(next Store, limiter *rate.Limiter) Store {
	return &instrumentedStore{next: next, limiter: limiter, tracer: observe.Tracer()}
}

// NewLimiter returns a limiter for perSec calls per second, or nil when
// perSec is not positive.
func NewLimiter(perSec float64, burst int) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

func (s *instrumentedStore) Read(ctx context.Context, r Range) ([][]string, error) {
	var rows [][]string
	err := s.observe(ctx, "read", []attribute.KeyValue{attribute.String("range", r.A1())}, func(ctx context.Context, span trace.Span) error {
		var err error
		rows, err = s.next.Read(ctx, r)
		span.SetAttributes(attribute.Int("rows.read", len(rows)))
		return err
	})
	return rows, err
}

func (s *instrumentedStore) Append(ctx context.Context, r Range, rows [][]string) error {
	attrs := []attribute.KeyValue{attribute.String("range", r.A1()), attribute.Int("rows.appended", len(rows))}
	return s.observe(ctx, "append", attrs, func(ctx context.Context, _ trace.Span) error {
		return s.next.Append(ctx, r, rows)
	})
}

func (s *instrumentedStore) BatchWrite(ctx context.Context, writes []CellWrite) error {
	attrs := []attribute.KeyValue{attribute.Int("cells.written", len(writes))}
	return s.observe(ctx, "batch_write", attrs, func(ctx context.Context, _ trace.Span) error {
		return s.next.BatchWrite(ctx, writes)
	})
}

func (s *instrumentedStore) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context, trace.Span) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
	defer span.End()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limiter")
			observe.StoreCalls.WithLabelValues(op, "throttled").Inc()
			return err
		}
	}

	start := time.Now()
	err := fn(ctx, span)
	observe.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	observe.StoreCalls.WithLabelValues(op, observe.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
