package datasource

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/sensoragent/internal/domain"
	"github.com/JonMunkholm/sensoragent/internal/schema"
)

// rowSource is what the pairing loop needs from a stream. The blocking and
// the suspension-based readers each provide one implementation.
type rowSource interface {
	header(ctx context.Context) ([]string, error)
	position(ctx context.Context) (Mark, error)
	read(ctx context.Context) (row, error)
	seek(ctx context.Context, m Mark) error
}

// cursor tracks one stream's mark for the current cycle.
type cursor struct {
	name  string
	src   rowSource
	specs []schema.FieldSpec

	mark      *Mark
	sinceMark int // rows read since mark was taken

	index    schema.HeaderIndex
	indexErr error // header present but missing required columns
}

// poll takes a mark if none is set and reads one row. ok is false when the
// stream is exhausted.
func (c *cursor) poll(ctx context.Context) (r row, ok bool, err error) {
	if c.mark == nil {
		m, err := c.src.position(ctx)
		if err != nil {
			return row{}, false, err
		}
		c.mark = &m
		c.sinceMark = 0
	}

	r, err = c.src.read(ctx)
	if errors.Is(err, io.EOF) {
		// Nothing was read since the mark: the stream is empty for this cycle.
		if c.sinceMark == 0 {
			c.mark = nil
		}
		return row{}, false, nil
	}
	if err != nil {
		return row{}, false, err
	}
	c.sinceMark++
	return r, true, nil
}

// headerIndex resolves the column layout on first use and caches it.
func (c *cursor) headerIndex(ctx context.Context) (schema.HeaderIndex, error) {
	if c.index != nil {
		return c.index, nil
	}
	header, err := c.src.header(ctx)
	if err != nil {
		return nil, err
	}
	idx := schema.PositionalIndex(c.specs)
	if header != nil {
		idx = schema.MakeHeaderIndex(header)
		c.indexErr = schema.Validate(idx, c.specs)
	}
	c.index = idx
	return idx, nil
}

// cycle is the pairing-and-rewind state shared by both disciplines.
type cycle struct {
	accelerometer *cursor
	gps           *cursor

	observer Observer
	now      func() time.Time

	rewinds int64
	broken  bool
}

func newCycle(accelerometer, gps rowSource, o options) *cycle {
	return &cycle{
		accelerometer: &cursor{name: StreamAccelerometer, src: accelerometer, specs: schema.AccelerometerFieldSpecs},
		gps:           &cursor{name: StreamGps, src: gps, specs: schema.GpsFieldSpecs},
		observer:      o.observer,
		now:           o.now,
	}
}

// next produces one combined record, rewinding both streams at most once.
func (c *cycle) next(ctx context.Context) (domain.AggregatedData, error) {
	if c.broken {
		return domain.AggregatedData{}, ErrUnusable
	}

	data, err := c.pair(ctx)
	if err != nil {
		if poisons(err) {
			c.broken = true
		}
		c.observer.Failed(err)
		return domain.AggregatedData{}, err
	}
	return data, nil
}

func (c *cycle) pair(ctx context.Context) (domain.AggregatedData, error) {
	rewound := false
	for {
		accel, accelOK, err := c.accelerometer.poll(ctx)
		if err != nil {
			return domain.AggregatedData{}, err
		}
		gps, gpsOK, err := c.gps.poll(ctx)
		if err != nil {
			return domain.AggregatedData{}, err
		}

		if accelOK && gpsOK {
			return c.combine(ctx, accel, gps)
		}

		// A restored stream that runs dry before yielding a row changed
		// underneath us; never rewind a second time in one call.
		if rewound {
			return domain.AggregatedData{}, c.boundary(ReasonRepeatedRewind)
		}
		if c.accelerometer.mark == nil || c.gps.mark == nil {
			return domain.AggregatedData{}, c.boundary(ReasonMissingMark)
		}
		if err := c.rewind(ctx); err != nil {
			return domain.AggregatedData{}, err
		}
		rewound = true
	}
}

func (c *cycle) boundary(reason BoundaryReason) *CycleBoundaryError {
	return &CycleBoundaryError{
		Reason:              reason,
		AccelerometerMarked: c.accelerometer.mark != nil,
		GpsMarked:           c.gps.mark != nil,
	}
}

// rewind seeks both streams back to their marks and clears the marks so the
// restored positions are marked again on the retry.
func (c *cycle) rewind(ctx context.Context) error {
	ev := RewindEvent{
		Cycle:             c.rewinds + 1,
		AccelerometerRows: c.accelerometer.sinceMark,
		GpsRows:           c.gps.sinceMark,
		AccelerometerMark: *c.accelerometer.mark,
		GpsMark:           *c.gps.mark,
	}

	for _, cur := range []*cursor{c.accelerometer, c.gps} {
		if err := cur.src.seek(ctx, *cur.mark); err != nil {
			if isContextErr(err) {
				return err
			}
			return &SeekError{Stream: cur.name, Mark: *cur.mark, Err: err}
		}
	}

	c.accelerometer.mark, c.gps.mark = nil, nil
	c.accelerometer.sinceMark, c.gps.sinceMark = 0, 0
	c.rewinds++
	c.observer.Rewound(ev)
	return nil
}

func (c *cycle) combine(ctx context.Context, accel, gps row) (domain.AggregatedData, error) {
	a, aerr := decodeRow(ctx, c.accelerometer, accel, domain.DecodeAccelerometer)
	g, gerr := decodeRow(ctx, c.gps, gps, domain.DecodeGps)
	if aerr != nil {
		return domain.AggregatedData{}, aerr
	}
	if gerr != nil {
		return domain.AggregatedData{}, gerr
	}
	return domain.NewAggregatedData(a, g, c.now()), nil
}

func decodeRow[T any](ctx context.Context, cur *cursor, r row, decode func([]string, schema.HeaderIndex) (T, error)) (T, error) {
	var zero T
	if r.err != nil {
		return zero, &RowDecodeError{Stream: cur.name, Line: r.line, Err: r.err}
	}
	idx, err := cur.headerIndex(ctx)
	if err != nil {
		return zero, err
	}
	if cur.indexErr != nil {
		return zero, &RowDecodeError{Stream: cur.name, Line: r.line, Err: cur.indexErr}
	}
	v, err := decode(r.fields, idx)
	if err != nil {
		decodeErr := &RowDecodeError{Stream: cur.name, Line: r.line, Err: err}
		var fe *schema.FieldError
		if errors.As(err, &fe) {
			decodeErr.Field = fe.Field
		}
		return zero, decodeErr
	}
	return v, nil
}

// poisons reports whether err leaves the streams in an unknown position.
func poisons(err error) bool {
	var (
		decode   *RowDecodeError
		boundary *CycleBoundaryError
	)
	return !errors.As(err, &decode) && !errors.As(err, &boundary)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
