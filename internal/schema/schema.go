// Package schema describes the column layout of the sensor CSV files and
// converts raw CSV cells into typed values.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// FieldSpec defines a single numeric CSV column.
type FieldSpec struct {
	Name     string // Column header name, matched case-insensitively
	Required bool   // Column must exist in the row
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. When a name repeats,
// the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// PositionalIndex builds the index used for headerless files: columns are
// taken in the order the specs are declared.
func PositionalIndex(specs []FieldSpec) HeaderIndex {
	idx := make(HeaderIndex, len(specs))
	for i, spec := range specs {
		idx[strings.ToLower(spec.Name)] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// IsNumeric reports whether s is a plain number once cleaned.
func IsNumeric(s string) bool {
	return numericRegex.MatchString(CleanCell(s))
}

// LooksLikeData reports whether every cell of row is numeric. A first row that
// looks like data means the file carries no header.
func LooksLikeData(row []string) bool {
	if len(row) == 0 {
		return false
	}
	for _, cell := range row {
		if !IsNumeric(cell) {
			return false
		}
	}
	return true
}

// FieldError describes a single column that could not be decoded.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field %s: %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingColumn is returned when a required column is absent from the row.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidNumber is returned when a numeric cell cannot be parsed.
	ErrInvalidNumber = errors.New("invalid number")
)

// Float reads the numeric column named by spec from row.
func Float(row []string, idx HeaderIndex, spec FieldSpec) (float64, error) {
	pos, ok := idx[strings.ToLower(spec.Name)]
	if !ok || pos >= len(row) {
		return 0, &FieldError{Field: spec.Name, Err: ErrMissingColumn}
	}

	raw := CleanCell(row[pos])
	if !numericRegex.MatchString(raw) {
		return 0, &FieldError{Field: spec.Name, Value: row[pos], Err: ErrInvalidNumber}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &FieldError{Field: spec.Name, Value: row[pos], Err: fmt.Errorf("%w: %v", ErrInvalidNumber, err)}
	}
	return v, nil
}

// Validate checks that every required spec is present in idx.
func Validate(idx HeaderIndex, specs []FieldSpec) error {
	var missing []string
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}
