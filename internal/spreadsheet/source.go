// File path: internal/spreadsheet/source.go
package spreadsheet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nicodishanthj/ata_conselho/internal/common/telemetry"
	"github.com/nicodishanthj/ata_conselho/internal/filecache"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

// Source serves records from a local workbook. The sheet is re-read when the
// file changes and filtered in memory.
type Source struct {
	sheet string
	cache *filecache.Cache[records.Table]
}

// New returns a workbook source. An empty sheet selects the first sheet.
func New(path, sheet string) *Source {
	s := &Source{sheet: strings.TrimSpace(sheet)}
	s.cache = filecache.New("spreadsheet", path, s.load)
	return s
}

func (s *Source) Name() string { return "spreadsheet" }

func (s *Source) Cache() *filecache.Cache[records.Table] { return s.cache }

func (s *Source) Fetch(ctx context.Context, filter records.Filter) (records.Table, error) {
	_, end := telemetry.StartSpan(ctx, "spreadsheet.fetch")
	start := time.Now()
	all, err := s.cache.Get()
	if err != nil {
		telemetry.RecordFetch(s.Name(), 0, time.Since(start), err)
		end("error", err)
		return records.Table{}, err
	}
	out := filter.Apply(all)
	telemetry.RecordFetch(s.Name(), out.Len(), time.Since(start), nil)
	end("rows", out.Len())
	return out, nil
}

// Ping reports whether the workbook can be read.
func (s *Source) Ping(ctx context.Context) error {
	_, err := s.cache.Get()
	return err
}

// ReadAll loads every row of the configured sheet without filtering.
func (s *Source) ReadAll() (records.Table, error) {
	return s.cache.Get()
}

func (s *Source) load(path string) (records.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return records.Table{}, fmt.Errorf("spreadsheet: open %s: %w", path, err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return records.Table{}, fmt.Errorf("spreadsheet: read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return records.Table{Columns: records.DefaultColumnMap()}, nil
	}
	headers := rows[0]
	columns, err := records.InferColumnMap(headers)
	if err != nil {
		return records.Table{}, fmt.Errorf("spreadsheet: sheet %s: %w", sheet, err)
	}
	table := records.Table{Columns: columns}
	for _, cells := range rows[1:] {
		row := make(records.Row, len(headers))
		empty := true
		for i, header := range headers {
			if strings.TrimSpace(header) == "" {
				continue
			}
			if i < len(cells) {
				row[header] = cells[i]
				if strings.TrimSpace(cells[i]) != "" {
					empty = false
				}
			}
		}
		if !empty {
			table.Rows = append(table.Rows, row)
		}
	}
	return table, nil
}

var (
	_ records.Source = (*Source)(nil)
	_ records.Pinger = (*Source)(nil)
)
