// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nicodishanthj/ata_conselho/internal/ata"
	"github.com/nicodishanthj/ata_conselho/internal/roster"
)

const (
	SourceSupabase    = "supabase"
	SourceSpreadsheet = "spreadsheet"
	SourceSQLite      = "sqlite"
)

// Config selects the record source and the side files backing the server.
type Config struct {
	Source           string
	SpreadsheetPath  string
	SpreadsheetSheet string
	SQLitePath       string
	ObjectivesPath   string
	RosterPath       string
	RosterSheet      string
	ArtifactRoot     string
	Watch            bool
	OptionsTTL       time.Duration
	Institution      ata.Institution
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied. The sqlite mirror is off unless a path is set.
func DefaultConfig() Config {
	return Config{
		Source:          SourceSupabase,
		SpreadsheetPath: filepath.Join("data", "respostas.xlsx"),
		ObjectivesPath:  filepath.Join("data", "objetivos.json"),
		RosterPath:      filepath.Join("data", "dados.xlsx"),
		RosterSheet:     roster.DefaultSheet,
		ArtifactRoot:    filepath.Join("data", "atas"),
		OptionsTTL:      time.Minute,
		Institution:     ata.DefaultInstitution(),
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	stringVars := map[string]*string{
		"ATA_SOURCE":              &cfg.Source,
		"ATA_SPREADSHEET_PATH":    &cfg.SpreadsheetPath,
		"ATA_SPREADSHEET_SHEET":   &cfg.SpreadsheetSheet,
		"ATA_SQLITE_PATH":         &cfg.SQLitePath,
		"OBJETIVOS_JSON":          &cfg.ObjectivesPath,
		"PARTICIPANTES_XLSX_PATH": &cfg.RosterPath,
		"PARTICIPANTES_SHEET":     &cfg.RosterSheet,
		"ATA_ARTIFACT_ROOT":       &cfg.ArtifactRoot,
		"ATA_PREFEITURA":          &cfg.Institution.Prefeitura,
		"ATA_SECRETARIA":          &cfg.Institution.Secretaria,
		"ATA_ESCOLA":              &cfg.Institution.Escola,
	}
	for key, target := range stringVars {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}
	if value := strings.TrimSpace(os.Getenv("ATA_WATCH_FILES")); value != "" {
		watch, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse ATA_WATCH_FILES: %w", err)
		}
		cfg.Watch = watch
	}
	if value := strings.TrimSpace(os.Getenv("ATA_OPTIONS_TTL")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse ATA_OPTIONS_TTL: %w", err)
		}
		cfg.OptionsTTL = dur
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	if cfg.Source == "" {
		cfg.Source = defaults.Source
	}
	if strings.TrimSpace(cfg.SpreadsheetPath) == "" {
		cfg.SpreadsheetPath = defaults.SpreadsheetPath
	}
	if strings.TrimSpace(cfg.RosterSheet) == "" {
		cfg.RosterSheet = defaults.RosterSheet
	}
	if strings.TrimSpace(cfg.ArtifactRoot) == "" {
		cfg.ArtifactRoot = defaults.ArtifactRoot
	}
	if cfg.OptionsTTL <= 0 {
		cfg.OptionsTTL = defaults.OptionsTTL
	}
	if strings.TrimSpace(cfg.Institution.Prefeitura) == "" {
		cfg.Institution.Prefeitura = defaults.Institution.Prefeitura
	}
	if strings.TrimSpace(cfg.Institution.Secretaria) == "" {
		cfg.Institution.Secretaria = defaults.Institution.Secretaria
	}
	if strings.TrimSpace(cfg.Institution.Escola) == "" {
		cfg.Institution.Escola = defaults.Institution.Escola
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Source {
	case SourceSupabase, SourceSpreadsheet:
	case SourceSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite source requires ATA_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown record source %q", c.Source)
	}
	if c.Source == SourceSpreadsheet && strings.TrimSpace(c.SpreadsheetPath) == "" {
		return fmt.Errorf("spreadsheet path required")
	}
	return nil
}
