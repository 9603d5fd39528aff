// File path: internal/workflow/options.go
package workflow

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/records"
)

// OptionSet holds the values offered by the filter form. Without a year or
// shift only Years and Shifts are filled; otherwise Classes and Trimesters.
type OptionSet struct {
	Years      []string `json:"anos,omitempty"`
	Shifts     []string `json:"turnos,omitempty"`
	Classes    []string `json:"turmas,omitempty"`
	Trimesters []string `json:"trimestres,omitempty"`
}

// Options lists the distinct filter values available in the source.
func (s *Service) Options(ctx context.Context, year, shift string) (OptionSet, error) {
	year = strings.TrimSpace(year)
	shift = strings.TrimSpace(shift)
	key := year + "|" + shift
	if cached, ok := s.options.get(key); ok {
		return cached, nil
	}
	table, err := s.source.Fetch(ctx, records.Filter{Year: year, Shift: shift})
	if err != nil {
		return OptionSet{}, err
	}
	recs := table.Records()
	var set OptionSet
	if year == "" && shift == "" {
		set.Years = sortedDistinct(recs, func(r records.Record) string { return r.Year })
		set.Shifts = sortedDistinct(recs, func(r records.Record) string { return r.Shift })
	} else {
		set.Classes = sortedDistinct(recs, func(r records.Record) string { return r.ClassID })
		set.Trimesters = trimesterValues(recs)
	}
	s.options.set(key, set)
	return set, nil
}

// InvalidateOptions drops cached option lists.
func (s *Service) InvalidateOptions() {
	s.options.clear()
}

func sortedDistinct(recs []records.Record, field func(records.Record) string) []string {
	values := records.Distinct(recs, field)
	slices.Sort(values)
	return values
}

// trimesterValues keeps the numeric trimesters, normalized and in numeric
// order.
func trimesterValues(recs []records.Record) []string {
	seen := map[int]struct{}{}
	var nums []int
	for _, rec := range recs {
		n, err := strconv.Atoi(strings.TrimSpace(rec.Trimester))
		if err != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		nums = append(nums, n)
	}
	slices.Sort(nums)
	out := make([]string, 0, len(nums))
	for _, n := range nums {
		out = append(out, strconv.Itoa(n))
	}
	return out
}
