// Package publisher drives the synchronizer at a fixed cadence and forwards
// every combined record to a sink.
//
// The loop runs one tick immediately on start, then every delay. A tick that
// fails to read or to publish is logged and skipped; the loop only stops when
// its context is cancelled.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/sensoragent/internal/datasource"
	"github.com/JonMunkholm/sensoragent/internal/logging"
	"github.com/JonMunkholm/sensoragent/internal/telemetry"
)

// Sink receives encoded records.
type Sink interface {
	Publish(ctx context.Context, payload []byte) error
}

// Publisher is the publishing loop.
type Publisher struct {
	source  Source
	sink    Sink
	delay   time.Duration
	monitor *Monitor
	tracer  trace.Tracer
	newID   func() uuid.UUID

	ticks int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMonitor records statistics in m.
func WithMonitor(m *Monitor) Option {
	return func(p *Publisher) { p.monitor = m }
}

// WithTracerProvider sets the provider tick spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Publisher) { p.tracer = telemetry.Tracer(tp) }
}

// New returns a publisher reading from source and sending to sink every delay.
func New(source Source, sink Sink, delay time.Duration, opts ...Option) *Publisher {
	p := &Publisher{
		source:  source,
		sink:    sink,
		delay:   delay,
		monitor: NewMonitor("", ""),
		tracer:  telemetry.Tracer(nil),
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Monitor returns the statistics collector.
func (p *Publisher) Monitor() *Monitor { return p.monitor }

// Run publishes until ctx is cancelled, then closes the source.
func (p *Publisher) Run(ctx context.Context) error {
	slog.Info("publisher started", "delay", p.delay.String())
	defer p.source.Close()

	// Publish immediately on startup
	p.tick(ctx)

	// Then publish periodically
	ticker := time.NewTicker(p.delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("publisher stopped", "ticks", p.ticks)
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick reads one record and publishes it.
func (p *Publisher) tick(ctx context.Context) {
	p.ticks++
	ctx, span := p.tracer.Start(ctx, "publisher.tick",
		trace.WithAttributes(attribute.Int64("publisher.tick", p.ticks)))
	defer span.End()

	logger := logging.WithFields(ctx, "tick", p.ticks)
	start := time.Now()

	rec, err := p.source.Next(ctx)
	if err != nil {
		code := datasource.Code(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		if datasource.NeedsReopen(err) {
			p.monitor.reopened()
			logger.Error("read failed, reopening datasource", "code", code, "error", err)
		} else {
			logger.Warn("read failed, skipping tick", "code", code, "error", err)
		}
		return
	}

	id := p.newID()
	span.SetAttributes(attribute.String("message.id", id.String()))

	payload, err := Encode(id, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode")
		logger.Error("encode failed", "error", err)
		p.monitor.publishFailed(err)
		return
	}

	logger.Debug("publishing record", "id", id.String(), "record", rec.String())

	if err := p.sink.Publish(ctx, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish")
		logger.Error("publish failed", "id", id.String(), "error", err)
		p.monitor.publishFailed(err)
		return
	}

	p.monitor.published(rec)
	logger.Debug("record published",
		"id", id.String(),
		"bytes", len(payload),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
