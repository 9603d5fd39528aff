// File path: internal/roster/roster.go
package roster

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/filecache"
)

const DefaultSheet = "profs"

var stoplist = map[string]struct{}{
	"professor":    {},
	"professores":  {},
	"nome":         {},
	"participante": {},
}

// Roster serves the participant list from the first column of a workbook
// sheet.
type Roster struct {
	sheet string
	cache *filecache.Cache[[]string]
}

func New(path, sheet string) *Roster {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheet
	}
	r := &Roster{sheet: sheet}
	r.cache = filecache.New("roster", path, r.load)
	return r
}

func (r *Roster) Cache() *filecache.Cache[[]string] {
	if r == nil {
		return nil
	}
	return r.cache
}

// Participants returns the roster, re-reading the workbook when it changed or
// when force is set. An absent or unreadable workbook yields an empty list.
func (r *Roster) Participants(force bool) []string {
	if r == nil || r.cache == nil {
		return nil
	}
	var (
		names []string
		err   error
	)
	if force {
		names, err = r.cache.Reload()
	} else {
		names, err = r.cache.Get()
	}
	if err != nil {
		common.Logger().Warnw("roster: load failed", "path", r.cache.Path(), "sheet", r.sheet, "error", err)
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (r *Roster) load(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("roster: read sheet %s: %w", r.sheet, err)
	}
	column := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 {
			continue
		}
		column = append(column, row[0])
	}
	return Clean(column), nil
}

// Clean trims names, drops header-like values and removes case-insensitive
// duplicates, keeping the first spelling.
func Clean(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, skip := stoplist[key]; skip {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Split parses a newline separated participant field into names.
func Split(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			out = append(out, name)
		}
	}
	return out
}
