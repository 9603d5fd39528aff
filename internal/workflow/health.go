// File path: internal/workflow/health.go
package workflow

import (
	"context"

	"github.com/nicodishanthj/ata_conselho/internal/records"
)

// HealthPreviewRows caps the rows read to build a health report.
const HealthPreviewRows = 1000

// HealthReport summarizes source connectivity and the data it holds.
type HealthReport struct {
	OK             bool           `json:"ok"`
	Status         string         `json:"status"`
	Source         string         `json:"source"`
	Error          string         `json:"error,omitempty"`
	Counts         map[string]int `json:"counts"`
	Values         OptionSet      `json:"values_preview"`
	Queue          int            `json:"queue"`
	MailConfigured bool           `json:"mail_configured"`
}

// Health pings the source and previews its filter values. Source failures
// are reported in the result, not returned.
func (s *Service) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:         "ok",
		Source:         s.source.Name(),
		Counts:         map[string]int{},
		Queue:          len(s.Queue()),
		MailConfigured: s.mailer != nil && s.mailer.Configured(),
	}
	fail := func(err error) HealthReport {
		report.Status = "error"
		report.Error = err.Error()
		return report
	}
	if pinger, ok := s.source.(records.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fail(err)
		}
	}
	table, err := s.source.Fetch(ctx, records.Filter{Limit: HealthPreviewRows})
	if err != nil {
		return fail(err)
	}
	recs := table.Records()
	report.Values = OptionSet{
		Years:      sortedDistinct(recs, func(r records.Record) string { return r.Year }),
		Shifts:     sortedDistinct(recs, func(r records.Record) string { return r.Shift }),
		Classes:    sortedDistinct(recs, func(r records.Record) string { return r.ClassID }),
		Trimesters: trimesterValues(recs),
	}
	report.Counts["rows_previewed"] = len(recs)
	report.Counts["anos"] = len(report.Values.Years)
	report.Counts["turnos"] = len(report.Values.Shifts)
	report.Counts["turmas"] = len(report.Values.Classes)
	report.Counts["trimestres"] = len(report.Values.Trimesters)
	report.OK = true
	return report
}
