package datasource

import (
	"errors"

	"github.com/go-git/go-billy/v5"
)

// handles owns the two open streams of one reader.
type handles struct {
	accelerometer *csvStream
	gps           *csvStream
}

// openHandles opens both files or neither.
func openHandles(fsys billy.Filesystem, accelerometerPath, gpsPath string) (*handles, error) {
	af, err := fsys.Open(accelerometerPath)
	if err != nil {
		return nil, &ResourceOpenError{Stream: StreamAccelerometer, Path: accelerometerPath, Err: err}
	}

	gf, err := fsys.Open(gpsPath)
	if err != nil {
		_ = af.Close()
		return nil, &ResourceOpenError{Stream: StreamGps, Path: gpsPath, Err: err}
	}

	return &handles{
		accelerometer: newCSVStream(StreamAccelerometer, accelerometerPath, af),
		gps:           newCSVStream(StreamGps, gpsPath, gf),
	}, nil
}

func (h *handles) close() error {
	return errors.Join(h.accelerometer.close(), h.gps.close())
}
