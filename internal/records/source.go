// File path: internal/records/source.go
package records

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrSourceUnavailable is returned when a source is not configured or cannot
// be reached at all.
var ErrSourceUnavailable = errors.New("records: source unavailable")

// Filter narrows a fetch. Empty fields are not applied. Limit caps the number
// of rows returned; zero means no cap.
type Filter struct {
	Year      string `json:"ano,omitempty"`
	Shift     string `json:"turno,omitempty"`
	ClassID   string `json:"turma,omitempty"`
	Trimester string `json:"trimestre,omitempty"`
	Limit     int    `json:"-"`
}

// TrimesterInt reports the trimester as an integer. Non-numeric trimesters are
// not filterable.
func (f Filter) TrimesterInt() (int, bool) {
	value := strings.TrimSpace(f.Trimester)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Match applies the filter to an already decoded record. String fields are
// compared exactly; the trimester is compared numerically.
func (f Filter) Match(rec Record) bool {
	if f.Year != "" && rec.Year != f.Year {
		return false
	}
	if f.Shift != "" && rec.Shift != f.Shift {
		return false
	}
	if f.ClassID != "" && rec.ClassID != f.ClassID {
		return false
	}
	if want, ok := f.TrimesterInt(); ok {
		got, err := strconv.Atoi(strings.TrimSpace(rec.Trimester))
		if err != nil || got != want {
			return false
		}
	}
	return true
}

// Apply returns the rows of t whose decoded record matches f, up to f.Limit.
func (f Filter) Apply(t Table) Table {
	out := Table{Columns: t.Columns}
	for _, row := range t.Rows {
		if f.Limit > 0 && len(out.Rows) >= f.Limit {
			break
		}
		if f.Match(t.Columns.Decode(row)) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Source fetches evaluation records. An empty table with a nil error is the
// normal "no data" outcome.
type Source interface {
	Name() string
	Fetch(ctx context.Context, filter Filter) (Table, error)
}

// Pinger is implemented by sources that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Distinct returns the unique non-empty values, in first-appearance order, of
// field across recs.
func Distinct(recs []Record, field func(Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range recs {
		value := strings.TrimSpace(field(rec))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
