// File path: internal/workflow/service.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nicodishanthj/ata_conselho/internal/ata"
	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/common/telemetry"
	"github.com/nicodishanthj/ata_conselho/internal/mail"
	"github.com/nicodishanthj/ata_conselho/internal/objectives"
	"github.com/nicodishanthj/ata_conselho/internal/pdf"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/roster"
	"github.com/nicodishanthj/ata_conselho/internal/sqlite"
)

const maxLogEntries = 500

var (
	ErrNoRecords         = errors.New("no records for filters")
	ErrQueueEmpty        = errors.New("queue is empty")
	ErrRecipientRequired = errors.New("valid recipient e-mail required")
	ErrArtifactNotFound  = errors.New("artifact not available")
	ErrArtifactInvalid   = errors.New("artifact invalid")
)

// Mailer delivers the finalized archive.
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, msg mail.Message) error
}

// ExportRecorder keeps an audit trail of generated atas.
type ExportRecorder interface {
	RecordExport(ctx context.Context, exp sqlite.Export) error
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Artifact is a rendered file held in memory.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

type Config struct {
	Source       records.Source
	Composer     *ata.Composer
	Objectives   *objectives.Store
	Roster       *roster.Roster
	Renderer     *pdf.Renderer
	Mailer       Mailer
	Exports      ExportRecorder
	ArtifactRoot string
	OptionsTTL   time.Duration
}

// Service runs the ata use cases on top of a record source: composing text,
// rendering PDFs, and queueing them for delivery.
type Service struct {
	source     records.Source
	composer   *ata.Composer
	objectives *objectives.Store
	roster     *roster.Roster
	renderer   *pdf.Renderer
	mailer     Mailer
	exports    ExportRecorder

	options *optionsCache

	logMu sync.Mutex
	logs  []LogEntry

	queueMu   sync.Mutex
	queuePath string
	queue     []QueueItem

	artifactRoot string

	now func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("workflow: %w", records.ErrSourceUnavailable)
	}
	svc := &Service{
		source:       cfg.Source,
		composer:     cfg.Composer,
		objectives:   cfg.Objectives,
		roster:       cfg.Roster,
		renderer:     cfg.Renderer,
		mailer:       cfg.Mailer,
		exports:      cfg.Exports,
		options:      newOptionsCache(cfg.OptionsTTL),
		logs:         make([]LogEntry, 0, 32),
		artifactRoot: strings.TrimSpace(cfg.ArtifactRoot),
		now:          time.Now,
	}
	if svc.composer == nil {
		svc.composer = ata.NewComposer(cfg.Objectives)
	}
	if svc.renderer == nil {
		svc.renderer = pdf.NewRenderer(pdf.DefaultLayout())
	}
	if svc.artifactRoot == "" {
		svc.artifactRoot = filepath.Join(os.TempDir(), "ata_conselho")
	}
	if err := os.MkdirAll(filepath.Join(svc.artifactRoot, queueDirName), 0o755); err != nil {
		common.Logger().Warnw("workflow: create artifact root failed", "error", err, "path", svc.artifactRoot)
		svc.artifactRoot = ""
	}
	if svc.artifactRoot != "" {
		svc.queuePath = filepath.Join(svc.artifactRoot, "queue.json")
	}
	if err := svc.loadQueue(); err != nil {
		common.Logger().Warnw("workflow: load queue failed", "error", err)
	}
	return svc, nil
}

// SourceName reports the active record source.
func (s *Service) SourceName() string { return s.source.Name() }

func (s *Service) ArtifactRoot() string { return s.artifactRoot }

func (s *Service) AppendLog(level, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	entry := LogEntry{Time: time.Now().UTC(), Level: level, Message: text}
	s.logMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
	s.logMu.Unlock()
	logger := common.Logger()
	switch level {
	case "error":
		logger.Error(text)
	case "warn":
		logger.Warn(text)
	case "debug":
		logger.Debug(text)
	default:
		logger.Info(text)
	}
}

func (s *Service) Logs() []LogEntry {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	entries := make([]LogEntry, len(s.logs))
	copy(entries, s.logs)
	return entries
}

// ComposeText validates req and returns the composed minutes body.
func (s *Service) ComposeText(ctx context.Context, req Request) (string, error) {
	normalized, err := normalizeRequest(req)
	if err != nil {
		return "", err
	}
	ctx, end := telemetry.StartSpan(ctx, "workflow.compose_text")
	home, broad, err := s.fetch(ctx, normalized.Filter())
	if err != nil {
		end("error", err)
		return "", err
	}
	text, err := s.composer.ComposeTable(normalized.Meeting(), home, broad)
	if err != nil {
		end("error", err)
		return "", err
	}
	s.recordCompose(home)
	end("rows", home.Len(), "broad_rows", broad.Len())
	return text, nil
}

// RenderPDF validates req and renders the ata as a PDF. A non-blank
// EditedText replaces the composed body.
func (s *Service) RenderPDF(ctx context.Context, req Request) (Artifact, error) {
	normalized, err := normalizeRequest(req)
	if err != nil {
		return Artifact{}, err
	}
	return s.renderPDF(ctx, normalized)
}

func (s *Service) renderPDF(ctx context.Context, req Request) (Artifact, error) {
	ctx, end := telemetry.StartSpan(ctx, "workflow.render_pdf")
	home, broad, err := s.fetch(ctx, req.Filter())
	if err != nil {
		end("error", err)
		return Artifact{}, err
	}
	doc, err := s.composer.RenderDocument(req.Meeting(), req.EditedText, home.Records(), broad.Records())
	if err != nil {
		end("error", err)
		return Artifact{}, err
	}
	data, err := s.renderer.Bytes(doc)
	if err != nil {
		end("error", err)
		return Artifact{}, fmt.Errorf("render pdf: %w", err)
	}
	s.recordCompose(home)
	telemetry.RecordExport("pdf")
	end("bytes", len(data))
	return Artifact{
		Name:        PDFName(req.Number.String()),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// fetch loads the class's own records and the broader same-trimester set
// used for the Integral program. The broad set prefers rows whose year is
// "Integral" and falls back to every row of the trimester.
func (s *Service) fetch(ctx context.Context, filter records.Filter) (records.Table, records.Table, error) {
	var home, broad records.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		table, err := s.source.Fetch(gctx, filter)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", s.source.Name(), err)
		}
		home = table
		return nil
	})
	g.Go(func() error {
		table, err := s.source.Fetch(gctx, records.Filter{Year: "Integral", Trimester: filter.Trimester})
		if err != nil {
			return fmt.Errorf("fetch integral %s: %w", s.source.Name(), err)
		}
		if table.Len() == 0 {
			table, err = s.source.Fetch(gctx, records.Filter{Trimester: filter.Trimester})
			if err != nil {
				return fmt.Errorf("fetch trimester %s: %w", s.source.Name(), err)
			}
		}
		broad = table
		return nil
	})
	if err := g.Wait(); err != nil {
		return records.Table{}, records.Table{}, err
	}
	if home.Len() == 0 {
		return records.Table{}, records.Table{}, ErrNoRecords
	}
	return home, broad, nil
}

func (s *Service) recordCompose(home records.Table) {
	students := records.Distinct(home.Records(), func(r records.Record) string { return r.Student })
	telemetry.RecordCompose(len(students))
}

// Participants returns the roster; force re-reads the workbook.
func (s *Service) Participants(force bool) []string {
	names := s.roster.Participants(force)
	if names == nil {
		return []string{}
	}
	return names
}

// ReloadObjectives re-reads the objectives file and reports how many years
// it covers.
func (s *Service) ReloadObjectives() (int, error) {
	m, err := s.objectives.Reload()
	if err != nil {
		s.AppendLog("warn", "Objectives reload failed: %v", err)
		return 0, err
	}
	s.AppendLog("info", "Objectives reloaded (%d years)", len(m))
	return len(m), nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]+`)

// SanitizeFilename replaces every run of characters outside [A-Za-z0-9_.-]
// with an underscore.
func SanitizeFilename(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// PDFName is the download name of the ata numbered number.
func PDFName(number string) string {
	return "ATA_" + SanitizeFilename(strings.TrimSpace(number)) + ".pdf"
}
