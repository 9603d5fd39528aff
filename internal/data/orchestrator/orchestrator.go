// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/ata"
	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/filecache"
	"github.com/nicodishanthj/ata_conselho/internal/mail"
	"github.com/nicodishanthj/ata_conselho/internal/objectives"
	"github.com/nicodishanthj/ata_conselho/internal/pdf"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/roster"
	"github.com/nicodishanthj/ata_conselho/internal/spreadsheet"
	"github.com/nicodishanthj/ata_conselho/internal/sqlite"
	"github.com/nicodishanthj/ata_conselho/internal/supabase"
	"github.com/nicodishanthj/ata_conselho/internal/workflow"
)

type closer interface {
	Close() error
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// Orchestrator wires the record source, the side-file stores and the
// workflow service that the API layer and the CLI share.
type Orchestrator struct {
	cfg Config

	source     records.Source
	catalog    *sqlite.Store
	objectives *objectives.Store
	roster     *roster.Roster
	mailer     workflow.Mailer
	watcher    *filecache.Watcher
	service    *workflow.Service

	closers []closer
}

// New constructs an orchestrator from the provided configuration and optional
// overrides.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	if settings.source == nil {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
	}

	orch := &Orchestrator{
		cfg:        cfg,
		objectives: objectives.NewStore(strings.TrimSpace(cfg.ObjectivesPath)),
		roster:     roster.New(strings.TrimSpace(cfg.RosterPath), cfg.RosterSheet),
	}

	if strings.TrimSpace(cfg.SQLitePath) != "" {
		catalog, err := openCatalog(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		orch.catalog = catalog
		orch.closers = append(orch.closers, catalog)
	}

	var cacheSource *spreadsheet.Source
	switch {
	case settings.source != nil:
		orch.source = settings.source
	case cfg.Source == SourceSQLite:
		orch.source = orch.catalog
	case cfg.Source == SourceSpreadsheet:
		cacheSource = spreadsheet.New(cfg.SpreadsheetPath, cfg.SpreadsheetSheet)
		orch.source = cacheSource
	default:
		client, err := supabase.NewFromEnv()
		if err != nil {
			_ = orch.Close()
			return nil, fmt.Errorf("init supabase client: %w", err)
		}
		orch.source = client
	}

	switch {
	case settings.mailer != nil:
		orch.mailer = settings.mailer
	default:
		mailCfg, err := mail.LoadConfig()
		if err != nil {
			_ = orch.Close()
			return nil, fmt.Errorf("init mail: %w", err)
		}
		orch.mailer = mail.New(mailCfg)
	}

	composer := ata.NewComposer(orch.objectives)
	composer.Institution = cfg.Institution
	svcCfg := workflow.Config{
		Source:       orch.source,
		Composer:     composer,
		Objectives:   orch.objectives,
		Roster:       orch.roster,
		Renderer:     pdf.NewRenderer(pdf.DefaultLayout()),
		Mailer:       orch.mailer,
		ArtifactRoot: cfg.ArtifactRoot,
		OptionsTTL:   cfg.OptionsTTL,
	}
	if orch.catalog != nil {
		svcCfg.Exports = orch.catalog
	}
	svc, err := workflow.NewService(svcCfg)
	if err != nil {
		_ = orch.Close()
		return nil, fmt.Errorf("init workflow: %w", err)
	}
	orch.service = svc

	if cfg.Watch && !settings.watchDisable {
		invalidators := []filecache.Invalidator{orch.objectives.Cache(), orch.roster.Cache()}
		if cacheSource != nil {
			invalidators = append(invalidators, cacheSource.Cache())
		}
		if err := orch.startWatcher(ctx, invalidators); err != nil {
			common.Logger().Warnw("orchestrator: file watching disabled", "error", err)
		}
	}

	common.Logger().Infow("orchestrator: ready",
		"source", orch.source.Name(),
		"sqlite", orch.catalog != nil,
		"objectives", cfg.ObjectivesPath,
		"roster", cfg.RosterPath,
		"watch", orch.watcher != nil)
	return orch, nil
}

func openCatalog(path string) (*sqlite.Store, error) {
	sqlCfg, err := sqlite.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load sqlite config: %w", err)
	}
	catalog, err := sqlite.OpenWithConfig(sqlCfg.Merge(sqlite.Config{Path: path}))
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	return catalog, nil
}

// startWatcher runs a file watcher until ctx ends or the orchestrator closes.
func (o *Orchestrator) startWatcher(ctx context.Context, caches []filecache.Invalidator) error {
	watcher, err := filecache.NewWatcher()
	if err != nil {
		return err
	}
	for _, cache := range caches {
		if cache == nil {
			continue
		}
		if err := watcher.Add(cache); err != nil {
			_ = watcher.Close()
			return err
		}
	}
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go watcher.Run(watchCtx)
	o.watcher = watcher
	o.closers = append(o.closers, closeFunc(func() error {
		cancel()
		return watcher.Close()
	}))
	return nil
}

// Source exposes the active record source.
func (o *Orchestrator) Source() records.Source {
	if o == nil {
		return nil
	}
	return o.source
}

// Catalog exposes the optional sqlite mirror.
func (o *Orchestrator) Catalog() *sqlite.Store {
	if o == nil {
		return nil
	}
	return o.catalog
}

func (o *Orchestrator) Objectives() *objectives.Store {
	if o == nil {
		return nil
	}
	return o.objectives
}

func (o *Orchestrator) Roster() *roster.Roster {
	if o == nil {
		return nil
	}
	return o.roster
}

// Service exposes the workflow service built on the configured stores.
func (o *Orchestrator) Service() *workflow.Service {
	if o == nil {
		return nil
	}
	return o.service
}

// Watching reports whether side files are watched for changes.
func (o *Orchestrator) Watching() bool {
	return o != nil && o.watcher != nil
}

// Close releases any resources associated with the orchestrator.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		closer := o.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	o.closers = nil
	return err
}
