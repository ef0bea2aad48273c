package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/sensoragent/internal/datasource"
)

// Observer reports synchronizer rewinds and failures as log entries and
// short spans.
type Observer struct {
	logger *slog.Logger
	tracer trace.Tracer
}

var _ datasource.Observer = (*Observer)(nil)

// NewObserver builds an Observer. A nil logger uses slog.Default and a nil
// provider uses the global tracer provider.
func NewObserver(logger *slog.Logger, tp trace.TracerProvider) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger, tracer: Tracer(tp)}
}

// Rewound implements datasource.Observer.
func (o *Observer) Rewound(ev datasource.RewindEvent) {
	o.logger.Debug("datasource rewound",
		"cycle", ev.Cycle,
		"accelerometer_rows", ev.AccelerometerRows,
		"gps_rows", ev.GpsRows,
	)

	_, span := o.tracer.Start(context.Background(), "datasource.rewind",
		trace.WithAttributes(
			attribute.Int64("datasource.cycle", ev.Cycle),
			attribute.Int("datasource.accelerometer.rows", ev.AccelerometerRows),
			attribute.Int("datasource.gps.rows", ev.GpsRows),
			attribute.Int64("datasource.accelerometer.offset", ev.AccelerometerMark.Offset),
			attribute.Int64("datasource.gps.offset", ev.GpsMark.Offset),
		),
	)
	span.End()
}

// Failed implements datasource.Observer.
func (o *Observer) Failed(err error) {
	code := datasource.Code(err)
	o.logger.Warn("datasource failed",
		"code", code,
		"needs_reopen", datasource.NeedsReopen(err),
		"error", err,
	)

	_, span := o.tracer.Start(context.Background(), "datasource.failure",
		trace.WithAttributes(
			attribute.String("datasource.error.code", code),
			attribute.Bool("datasource.needs_reopen", datasource.NeedsReopen(err)),
		),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	span.End()
}
