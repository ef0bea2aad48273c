package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sensoragent/internal/domain"
)

const (
	accelPath = "data/accelerometer.csv"
	gpsPath   = "data/gps.csv"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// accelCSV returns a headed accelerometer file whose row i is (i, 10i, 100i).
func accelCSV(rows int) string {
	var b strings.Builder
	b.WriteString("x,y,z\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "%d,%d,%d\n", i, 10*i, 100*i)
	}
	return b.String()
}

// gpsCSV returns a headed GPS file whose row i is (i, i+0.5).
func gpsCSV(rows int) string {
	var b strings.Builder
	b.WriteString("longitude,latitude\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "%d,%d.5\n", i, i)
	}
	return b.String()
}

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func newDatasource(fsys billy.Filesystem, opts ...Option) Datasource {
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	return New(fsys, accelPath, gpsPath, opts...)
}

// opened abstracts over the two disciplines so every property runs on both.
type opened struct {
	next  func() (domain.AggregatedData, error)
	close func() Datasource
}

type discipline struct {
	name string
	open func(Datasource) (opened, error)
}

var disciplines = []discipline{
	{
		name: "blocking",
		open: func(ds Datasource) (opened, error) {
			r, err := ds.Open()
			if err != nil {
				return opened{}, err
			}
			return opened{next: r.Next, close: r.Close}, nil
		},
	},
	{
		name: "async",
		open: func(ds Datasource) (opened, error) {
			r, err := ds.OpenAsync(context.Background())
			if err != nil {
				return opened{}, err
			}
			return opened{
				next:  func() (domain.AggregatedData, error) { return r.Next(context.Background()) },
				close: r.Close,
			}, nil
		},
	},
}

func mustOpen(t *testing.T, d discipline, ds Datasource) opened {
	t.Helper()
	o, err := d.open(ds)
	require.NoError(t, err)
	t.Cleanup(func() { o.close() })
	return o
}

// requirePair checks that rec is accelerometer row a paired with GPS row g.
func requirePair(t *testing.T, rec domain.AggregatedData, a, g int) {
	t.Helper()
	require.Equal(t, domain.Accelerometer{X: float64(a), Y: float64(10 * a), Z: float64(100 * a)}, rec.Accelerometer)
	require.Equal(t, domain.Gps{Longitude: float64(g), Latitude: float64(g) + 0.5}, rec.Gps)
}

// recordingObserver keeps every notification.
type recordingObserver struct {
	mu      sync.Mutex
	rewinds []RewindEvent
	errs    []error
}

func (o *recordingObserver) Rewound(ev RewindEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rewinds = append(o.rewinds, ev)
}

func (o *recordingObserver) Failed(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) rewindCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.rewinds)
}

// trackingFS counts files that are open and can fail opens or seeks.
type trackingFS struct {
	billy.Filesystem

	open      atomic.Int32
	failOpen  map[string]error
	seekLimit map[string]int // seeks allowed per file before failing
	gateSeek  map[string]*gate
}

// gate blocks armed seeks until released.
type gate struct {
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

var errInjected = errors.New("injected failure")

func (fs *trackingFS) Open(name string) (billy.File, error) {
	if err := fs.failOpen[name]; err != nil {
		return nil, err
	}
	f, err := fs.Filesystem.Open(name)
	if err != nil {
		return nil, err
	}
	fs.open.Add(1)
	limit, limited := fs.seekLimit[name]
	return &trackedFile{File: f, fs: fs, limit: limit, limited: limited, gate: fs.gateSeek[name]}, nil
}

type trackedFile struct {
	billy.File
	fs      *trackingFS
	seeks   int
	limit   int
	limited bool
	gate    *gate
	closed  bool
}

func (f *trackedFile) Seek(offset int64, whence int) (int64, error) {
	if f.gate != nil && f.gate.armed.Load() {
		f.gate.entered <- struct{}{}
		<-f.gate.release
	}
	f.seeks++
	if f.limited && f.seeks > f.limit {
		return 0, errInjected
	}
	return f.File.Seek(offset, whence)
}

func (f *trackedFile) Close() error {
	if !f.closed {
		f.closed = true
		f.fs.open.Add(-1)
	}
	return f.File.Close()
}
