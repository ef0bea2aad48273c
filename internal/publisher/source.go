package publisher

import (
	"context"

	"github.com/JonMunkholm/sensoragent/internal/config"
	"github.com/JonMunkholm/sensoragent/internal/datasource"
	"github.com/JonMunkholm/sensoragent/internal/domain"
)

// Source yields combined records and owns the synchronizer lifecycle: it
// opens lazily, and after an error that needs a reopen it closes the reader
// so the next call starts over from the first rows.
type Source interface {
	Next(ctx context.Context) (domain.AggregatedData, error)
	Close()
}

// NewSource returns the source for mode.
func NewSource(ds datasource.Datasource, mode config.ReadMode) Source {
	if mode == config.ReadAsync {
		return &AsyncSource{ds: ds}
	}
	return &BlockingSource{ds: ds}
}

// BlockingSource reads on the calling goroutine.
type BlockingSource struct {
	ds     datasource.Datasource
	reader *datasource.Reader
}

// Next implements Source. ctx is not consulted; blocking reads are not
// cancellable.
func (s *BlockingSource) Next(context.Context) (domain.AggregatedData, error) {
	if s.reader == nil {
		r, err := s.ds.Open()
		if err != nil {
			return domain.AggregatedData{}, err
		}
		s.reader = r
	}

	rec, err := s.reader.Next()
	if datasource.NeedsReopen(err) {
		s.Close()
	}
	return rec, err
}

// Close implements Source.
func (s *BlockingSource) Close() {
	if s.reader != nil {
		s.ds = s.reader.Close()
		s.reader = nil
	}
}

// AsyncSource waits on per-file goroutines and honours ctx.
type AsyncSource struct {
	ds     datasource.Datasource
	reader *datasource.AsyncReader
}

// Next implements Source.
func (s *AsyncSource) Next(ctx context.Context) (domain.AggregatedData, error) {
	if s.reader == nil {
		r, err := s.ds.OpenAsync(ctx)
		if err != nil {
			return domain.AggregatedData{}, err
		}
		s.reader = r
	}

	rec, err := s.reader.Next(ctx)
	if datasource.NeedsReopen(err) || (err != nil && ctx.Err() != nil) {
		s.Close()
	}
	return rec, err
}

// Close implements Source.
func (s *AsyncSource) Close() {
	if s.reader != nil {
		s.ds = s.reader.Close()
		s.reader = nil
	}
}
