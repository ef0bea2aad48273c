package publisher

import (
	"sync"
	"time"

	"github.com/JonMunkholm/sensoragent/internal/config"
	"github.com/JonMunkholm/sensoragent/internal/datasource"
	"github.com/JonMunkholm/sensoragent/internal/domain"
)

// Snapshot is a point-in-time view of the publishing loop.
type Snapshot struct {
	Mode      config.ReadMode `json:"mode"`
	Topic     string          `json:"topic"`
	StartedAt time.Time       `json:"started_at"`

	Published     int64 `json:"published"`
	PublishErrors int64 `json:"publish_errors"`
	SourceErrors  int64 `json:"source_errors"`
	Rewinds       int64 `json:"rewinds"`
	Reopens       int64 `json:"reopens"`

	LastRecord      *domain.AggregatedData `json:"last_record,omitempty"`
	LastPublishedAt *time.Time             `json:"last_published_at,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
	LastErrorCode   string                 `json:"last_error_code,omitempty"`
	LastErrorAt     *time.Time             `json:"last_error_at,omitempty"`
}

// Monitor collects publishing statistics. It observes the synchronizer and
// is safe for concurrent use.
type Monitor struct {
	mu   sync.Mutex
	snap Snapshot
	now  func() time.Time
}

var _ datasource.Observer = (*Monitor)(nil)

// NewMonitor returns a monitor for a loop reading in mode and publishing to topic.
func NewMonitor(mode config.ReadMode, topic string) *Monitor {
	m := &Monitor{now: time.Now}
	m.snap = Snapshot{Mode: mode, Topic: topic, StartedAt: m.now().UTC()}
	return m
}

// Rewound implements datasource.Observer.
func (m *Monitor) Rewound(datasource.RewindEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Rewinds++
}

// Failed implements datasource.Observer.
func (m *Monitor) Failed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.SourceErrors++
	m.setErrorLocked(datasource.Code(err), err)
}

func (m *Monitor) published(rec domain.AggregatedData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at := m.now().UTC()
	m.snap.Published++
	m.snap.LastRecord = &rec
	m.snap.LastPublishedAt = &at
}

func (m *Monitor) publishFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.PublishErrors++
	m.setErrorLocked("publish", err)
}

func (m *Monitor) reopened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Reopens++
}

func (m *Monitor) setErrorLocked(code string, err error) {
	at := m.now().UTC()
	m.snap.LastError = err.Error()
	m.snap.LastErrorCode = code
	m.snap.LastErrorAt = &at
}

// Snapshot returns a copy of the current statistics.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap
	if snap.LastRecord != nil {
		rec := *snap.LastRecord
		snap.LastRecord = &rec
	}
	return snap
}
