package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/JonMunkholm/sensoragent/internal/schema"
)

// Mark is a saved stream position: the byte offset and line at which the
// next row starts.
type Mark struct {
	Offset int64
	Line   int
}

// row is one raw CSV record. err is set when the record itself was malformed;
// the stream has still moved past it.
type row struct {
	fields []string
	line   int
	err    error
}

// csvStream is a resumable cursor over one delimited-text file. It is not
// safe for concurrent use.
type csvStream struct {
	name string
	path string
	file billy.File

	reader   *csv.Reader
	base     int64 // file offset the current reader started at
	baseLine int   // line number of the first record the current reader sees
	nextLine int

	resolved bool
	header   []string // nil for headerless files
}

func newCSVStream(name, path string, f billy.File) *csvStream {
	return &csvStream{name: name, path: path, file: f}
}

// resolveHeader reads the first row once. A row made only of numbers is data,
// so the stream is rewound to it; anything else is kept as the header.
func (s *csvStream) resolveHeader() error {
	if s.resolved {
		return nil
	}

	start, err := skipBOM(s.file)
	if err != nil {
		return fmt.Errorf("%s: read start of file: %w", s.name, err)
	}
	s.reset(Mark{Offset: start, Line: 1})

	first, err := s.reader.Read()
	switch {
	case errors.Is(err, io.EOF):
		s.resolved = true
		return nil
	case err != nil:
		return fmt.Errorf("%s: read header: %w", s.name, err)
	}

	if schema.LooksLikeData(first) {
		if _, err := s.file.Seek(start, io.SeekStart); err != nil {
			return fmt.Errorf("%s: rewind headerless file: %w", s.name, err)
		}
		s.reset(Mark{Offset: start, Line: 1})
	} else {
		s.header = append([]string(nil), first...)
		s.advance(first)
	}
	s.resolved = true
	return nil
}

func (s *csvStream) reset(m Mark) {
	r := csv.NewReader(newUTF8Sanitizer(s.file))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	s.reader = r
	s.baseLine = m.Line
	s.nextLine = m.Line
	s.base = m.Offset
}

// advance moves nextLine past the record just read.
func (s *csvStream) advance(record []string) {
	line, _ := s.reader.FieldPos(len(record) - 1)
	s.nextLine = s.baseLine + line
}

// Header returns the header row, or nil when the file has none.
func (s *csvStream) Header() ([]string, error) {
	if err := s.resolveHeader(); err != nil {
		return nil, err
	}
	return s.header, nil
}

// position returns the mark of the next row.
func (s *csvStream) position() (Mark, error) {
	if err := s.resolveHeader(); err != nil {
		return Mark{}, err
	}
	return Mark{Offset: s.base + s.reader.InputOffset(), Line: s.nextLine}, nil
}

// read returns the next row or io.EOF. Malformed records come back as a row
// with err set rather than as an error, because they are consumed.
func (s *csvStream) read() (row, error) {
	if err := s.resolveHeader(); err != nil {
		return row{}, err
	}

	record, err := s.reader.Read()
	if err == nil {
		r := row{fields: record, line: s.nextLine}
		s.advance(record)
		return r, nil
	}
	if errors.Is(err, io.EOF) {
		return row{}, io.EOF
	}

	var perr *csv.ParseError
	if errors.As(err, &perr) {
		r := row{line: s.baseLine + perr.StartLine - 1, err: perr.Err}
		s.nextLine = s.baseLine + perr.Line
		return r, nil
	}
	return row{}, fmt.Errorf("%s: read row: %w", s.name, err)
}

// seek repositions the stream at m.
func (s *csvStream) seek(m Mark) error {
	if err := s.resolveHeader(); err != nil {
		return err
	}
	if _, err := s.file.Seek(m.Offset, io.SeekStart); err != nil {
		return err
	}
	s.reset(m)
	return nil
}

func (s *csvStream) close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close %s stream %q: %w", s.name, s.path, err)
	}
	return nil
}
