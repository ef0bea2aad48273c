package datasource

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/sensoragent/internal/domain"
)

// Reader is an open datasource whose I/O blocks the calling goroutine.
// It is not safe for concurrent use.
type Reader struct {
	source  Datasource
	handles *handles
	cycle   *cycle
	closed  bool
}

// Next returns the next combined record.
func (r *Reader) Next() (domain.AggregatedData, error) {
	if r.closed {
		return domain.AggregatedData{}, ErrClosed
	}
	return r.cycle.next(context.Background())
}

// Close releases both files and returns the unopened datasource. A failure
// to close is reported to the observer; the files are released regardless.
func (r *Reader) Close() Datasource {
	if !r.closed {
		r.closed = true
		if err := r.handles.close(); err != nil {
			r.source.opts.observer.Failed(fmt.Errorf("close datasource: %w", err))
		}
	}
	return r.source
}

// blockingSource runs every operation directly on the caller's goroutine.
type blockingSource struct {
	stream *csvStream
}

func (b blockingSource) header(context.Context) ([]string, error) { return b.stream.Header() }
func (b blockingSource) position(context.Context) (Mark, error)   { return b.stream.position() }
func (b blockingSource) read(context.Context) (row, error)        { return b.stream.read() }
func (b blockingSource) seek(_ context.Context, m Mark) error     { return b.stream.seek(m) }
