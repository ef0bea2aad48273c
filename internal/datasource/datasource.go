package datasource

import (
	"time"

	"github.com/go-git/go-billy/v5"
)

type options struct {
	observer Observer
	now      func() time.Time
}

// Option configures a Datasource.
type Option func(*options)

// WithObserver sets the observer notified of rewinds and failures.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithClock sets the clock used to stamp combined records.
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		if now != nil {
			opts.now = now
		}
	}
}

// Datasource is the unopened state: two file paths on a filesystem.
// It is a value; opening does not change it.
type Datasource struct {
	fsys              billy.Filesystem
	accelerometerPath string
	gpsPath           string
	opts              options
}

// New returns an unopened datasource reading both paths from fsys.
func New(fsys billy.Filesystem, accelerometerPath, gpsPath string, opts ...Option) Datasource {
	o := options{
		observer: NopObserver{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return Datasource{
		fsys:              fsys,
		accelerometerPath: accelerometerPath,
		gpsPath:           gpsPath,
		opts:              o,
	}
}

// AccelerometerPath returns the configured accelerometer file.
func (d Datasource) AccelerometerPath() string { return d.accelerometerPath }

// GpsPath returns the configured GPS file.
func (d Datasource) GpsPath() string { return d.gpsPath }

// Open acquires both files on the calling goroutine.
func (d Datasource) Open() (*Reader, error) {
	h, err := openHandles(d.fsys, d.accelerometerPath, d.gpsPath)
	if err != nil {
		d.opts.observer.Failed(err)
		return nil, err
	}
	return &Reader{
		source:  d,
		handles: h,
		cycle:   newCycle(blockingSource{h.accelerometer}, blockingSource{h.gps}, d.opts),
	}, nil
}
