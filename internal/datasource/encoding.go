package datasource

// encoding.go prepares raw sensor files for the CSV reader:
//
//   - skipBOM: Steps over a UTF-8 BOM (0xEF 0xBB 0xBF) left by Windows tools
//   - utf8Sanitizer: Replaces invalid UTF-8 bytes with '?' on the fly
//
// Both keep byte offsets exact so cursor marks taken from the CSV reader can
// be used to seek the underlying file.

import (
	"io"
	"unicode/utf8"
)

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// skipBOM positions r just past a leading BOM, or back at the start when
// there is none, and returns the resulting offset.
func skipBOM(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	var buf [3]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	if n == len(buf) && buf == utf8BOM {
		return int64(n), nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return 0, nil
}

// utf8Sanitizer wraps an io.Reader and replaces every byte of an invalid
// UTF-8 sequence with '?'. The output is always exactly as long as the input.
type utf8Sanitizer struct {
	reader io.Reader

	// Leftover bytes from previous read that may form a multi-byte sequence
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:copy(s.pending, s.pending[offset:])]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isAllASCII(p[:n]) {
		return n, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// isAllASCII is the fast path: sensor logs are almost always plain ASCII.
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns how many bytes are ready.
// Unless atEOF, an incomplete sequence at the end is held back in pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	end := len(data)
	if !atEOF {
		if trailing := incompleteTrailingBytes(data); trailing > 0 {
			s.pending = append(s.pending, data[end-trailing:]...)
			end -= trailing
		}
	}

	for i := 0; i < end; {
		r, size := utf8.DecodeRune(data[i:end])
		if r == utf8.RuneError && size == 1 {
			data[i] = '?'
		}
		i += size
	}
	return end
}

// incompleteTrailingBytes returns the number of bytes at the end of data
// that start a multi-byte sequence but do not finish it.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		// Continuation byte (10xxxxxx) - keep checking
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with byte b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
