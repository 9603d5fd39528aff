// File path: internal/api/meta_handler.go
package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nicodishanthj/ata_conselho/internal/common"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.workflow.Health(r.Context())
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"success":         report.OK,
		"status":          report.Status,
		"source":          report.Source,
		"error":           report.Error,
		"counts":          report.Counts,
		"values_preview":  report.Values,
		"queue":           report.Queue,
		"mail_configured": report.MailConfigured,
		"watching":        s.orchestrator.Watching(),
	})
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSpace(r.URL.Query().Get("force")) {
	case "1", "true", "True":
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "participants": s.workflow.Participants(true)})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "participants": s.workflow.Participants(false)})
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	year := strings.TrimSpace(r.URL.Query().Get("ano"))
	shift := strings.TrimSpace(r.URL.Query().Get("turno"))
	set, err := s.workflow.Options(r.Context(), year, shift)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if year == "" && shift == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"anos":    nonNil(set.Years),
			"turnos":  nonNil(set.Shifts),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"turmas":     nonNil(set.Classes),
		"trimestres": nonNil(set.Trimesters),
	})
}

func (s *Server) handleObjectivesReload(w http.ResponseWriter, r *http.Request) {
	years, err := s.workflow.ReloadObjectives()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "anos": years})
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	catalog := s.orchestrator.Catalog()
	if catalog == nil {
		writeError(w, http.StatusNotFound, errors.New("sqlite mirror not configured"))
		return
	}
	limit, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	exports, err := catalog.Exports(r.Context(), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "exports": exports})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	combined := append([]common.LogEntry(nil), common.LogEntries()...)
	existing := make(map[string]struct{}, len(combined))
	for _, entry := range combined {
		existing[logEntryKey(entry.Time, entry.Level, entry.Message, entry.Component)] = struct{}{}
	}

	for _, entry := range s.workflow.Logs() {
		converted := common.LogEntry{
			Time:      entry.Time,
			Level:     strings.ToLower(entry.Level),
			Message:   entry.Message,
			Component: "workflow",
		}
		key := logEntryKey(converted.Time, converted.Level, converted.Message, converted.Component)
		if _, ok := existing[key]; ok {
			continue
		}
		combined = append(combined, converted)
		existing[key] = struct{}{}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Time.Equal(combined[j].Time) {
			if combined[i].Component == combined[j].Component {
				return combined[i].Message < combined[j].Message
			}
			return combined[i].Component < combined[j].Component
		}
		return combined[i].Time.Before(combined[j].Time)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": combined})
}

func logEntryKey(ts time.Time, level, message, component string) string {
	stamp := ts.UTC().Format(time.RFC3339Nano)
	return strings.Join([]string{stamp, strings.ToLower(strings.TrimSpace(level)), strings.TrimSpace(component), message}, "|")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
