package datasource

// RewindEvent describes one completed rewind.
type RewindEvent struct {
	// Cycle counts rewinds since open, starting at 1.
	Cycle int64
	// AccelerometerRows and GpsRows are the rows each stream produced in the
	// cycle that just ended.
	AccelerometerRows int
	GpsRows           int
	// AccelerometerMark and GpsMark are the positions both streams were sought to.
	AccelerometerMark Mark
	GpsMark           Mark
}

// Observer is notified at rewind points, on failed opens and on every error
// Next returns. Calls must not block for long.
type Observer interface {
	Rewound(RewindEvent)
	Failed(error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) Rewound(RewindEvent) {}
func (NopObserver) Failed(error)        {}

type multiObserver []Observer

func (m multiObserver) Rewound(ev RewindEvent) {
	for _, o := range m {
		o.Rewound(ev)
	}
}

func (m multiObserver) Failed(err error) {
	for _, o := range m {
		o.Failed(err)
	}
}

// Observers combines observers into one that notifies each in order.
// Nil entries are skipped.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
