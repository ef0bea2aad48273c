package datasource

import (
	"context"
	"errors"
	"fmt"
)

// Stream names used in errors and events.
const (
	StreamAccelerometer = "accelerometer"
	StreamGps           = "gps"
)

var (
	// ErrUnusable is returned by every call on a reader that hit a seek or I/O
	// failure, or whose Next was cancelled midway. Reopen to recover.
	ErrUnusable = errors.New("datasource: reader is unusable, reopen required")

	// ErrClosed is returned when a reader is used after Close.
	ErrClosed = errors.New("datasource: reader is closed")
)

// ResourceOpenError reports that one of the two files could not be opened.
// The open fails as a unit; nothing stays open.
type ResourceOpenError struct {
	Stream string
	Path   string
	Err    error
}

func (e *ResourceOpenError) Error() string {
	return fmt.Sprintf("open %s stream %q: %v", e.Stream, e.Path, e.Err)
}

func (e *ResourceOpenError) Unwrap() error { return e.Err }

// RowDecodeError reports a row that could not be parsed into its schema.
// The call fails but the reader stays usable.
type RowDecodeError struct {
	Stream string
	Line   int
	Field  string // empty when the row itself was malformed
	Err    error
}

func (e *RowDecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s line %d: %v", e.Stream, e.Line, e.Err)
	}
	return fmt.Sprintf("decode %s line %d field %s: %v", e.Stream, e.Line, e.Field, e.Err)
}

func (e *RowDecodeError) Unwrap() error { return e.Err }

// BoundaryReason tells why a rewind could not happen.
type BoundaryReason string

const (
	// ReasonMissingMark means a stream ran out without having produced a row
	// since its cycle began, i.e. it holds no data rows.
	ReasonMissingMark BoundaryReason = "missing_mark"
	// ReasonRepeatedRewind means a second rewind was needed within one call.
	ReasonRepeatedRewind BoundaryReason = "repeated_rewind"
)

// CycleBoundaryError reports a rewind that was needed but could not be done.
type CycleBoundaryError struct {
	Reason              BoundaryReason
	AccelerometerMarked bool
	GpsMarked           bool
}

func (e *CycleBoundaryError) Error() string {
	switch e.Reason {
	case ReasonRepeatedRewind:
		return "cycle boundary: streams exhausted again right after a rewind"
	default:
		return fmt.Sprintf("cycle boundary: unable to seek to the beginning of the files, start positions are not set (accelerometer=%t, gps=%t)",
			e.AccelerometerMarked, e.GpsMarked)
	}
}

// SeekError reports a failed rewind. The reader is unusable afterwards.
type SeekError struct {
	Stream string
	Mark   Mark
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("seek %s stream to offset %d: %v", e.Stream, e.Mark.Offset, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// NeedsReopen reports whether err requires the caller to close and reopen
// the datasource before reading again.
func NeedsReopen(err error) bool {
	if err == nil {
		return false
	}
	var (
		boundary *CycleBoundaryError
		seek     *SeekError
	)
	return errors.Is(err, ErrUnusable) ||
		errors.Is(err, ErrClosed) ||
		errors.As(err, &boundary) ||
		errors.As(err, &seek)
}

// Code classifies err into a short, stable label.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var (
		open     *ResourceOpenError
		decode   *RowDecodeError
		boundary *CycleBoundaryError
		seek     *SeekError
	)
	switch {
	case errors.As(err, &open):
		return "open"
	case errors.As(err, &decode):
		return "decode"
	case errors.As(err, &boundary):
		return "boundary"
	case errors.As(err, &seek):
		return "seek"
	case errors.Is(err, ErrUnusable):
		return "unusable"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancel"
	default:
		return "unknown"
	}
}
