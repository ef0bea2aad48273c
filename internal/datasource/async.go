package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/sensoragent/internal/domain"
)

// AsyncReader is an open datasource whose I/O runs on one goroutine per file.
// Every call waits for its operation or for ctx, whichever finishes first.
// It is not safe for concurrent use.
type AsyncReader struct {
	source        Datasource
	accelerometer *worker
	gps           *worker
	cycle         *cycle
	closed        bool
}

// OpenAsync acquires both files on a separate goroutine. If ctx ends first,
// the files are closed as soon as the open finishes and ctx.Err() is returned.
func (d Datasource) OpenAsync(ctx context.Context) (*AsyncReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		h   *handles
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := openHandles(d.fsys, d.accelerometerPath, d.gpsPath)
		done <- result{h: h, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			d.opts.observer.Failed(res.err)
			return nil, res.err
		}
		aw, gw := startWorker(res.h.accelerometer), startWorker(res.h.gps)
		return &AsyncReader{
			source:        d,
			accelerometer: aw,
			gps:           gw,
			cycle:         newCycle(asyncSource{aw}, asyncSource{gw}, d.opts),
		}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.h.close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Next returns the next combined record. If ctx is already done nothing is
// read. If ctx ends while the call is in progress the reader becomes
// unusable and must be reopened.
func (r *AsyncReader) Next(ctx context.Context) (domain.AggregatedData, error) {
	if r.closed {
		return domain.AggregatedData{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return domain.AggregatedData{}, err
	}
	return r.cycle.next(ctx)
}

// Close stops both workers, waits for any operation still running, releases
// both files and returns the unopened datasource.
func (r *AsyncReader) Close() Datasource {
	if !r.closed {
		r.closed = true
		if err := errors.Join(r.accelerometer.stop(), r.gps.stop()); err != nil {
			r.source.opts.observer.Failed(fmt.Errorf("close datasource: %w", err))
		}
	}
	return r.source
}

// worker owns one stream and runs the operations submitted to it in order.
type worker struct {
	stream   *csvStream
	ops      chan func()
	done     chan struct{}
	closeErr error
}

func startWorker(s *csvStream) *worker {
	w := &worker{
		stream: s,
		ops:    make(chan func()),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)
	for op := range w.ops {
		op()
	}
	w.closeErr = w.stream.close()
}

// submit hands fn to the worker and waits for it to finish. When ctx ends
// first, fn may still run later; its results must not be read by the caller.
func (w *worker) submit(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case w.ops <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) stop() error {
	close(w.ops)
	<-w.done
	return w.closeErr
}

// asyncSource turns each stream operation into a suspension point.
type asyncSource struct {
	w *worker
}

func (a asyncSource) header(ctx context.Context) ([]string, error) {
	var (
		header []string
		err    error
	)
	if serr := a.w.submit(ctx, func() { header, err = a.w.stream.Header() }); serr != nil {
		return nil, serr
	}
	return header, err
}

func (a asyncSource) position(ctx context.Context) (Mark, error) {
	var (
		m   Mark
		err error
	)
	if serr := a.w.submit(ctx, func() { m, err = a.w.stream.position() }); serr != nil {
		return Mark{}, serr
	}
	return m, err
}

func (a asyncSource) read(ctx context.Context) (row, error) {
	var (
		r   row
		err error
	)
	if serr := a.w.submit(ctx, func() { r, err = a.w.stream.read() }); serr != nil {
		return row{}, serr
	}
	return r, err
}

func (a asyncSource) seek(ctx context.Context, m Mark) error {
	var err error
	if serr := a.w.submit(ctx, func() { err = a.w.stream.seek(m) }); serr != nil {
		return serr
	}
	return err
}
