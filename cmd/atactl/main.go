// File path: cmd/atactl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/data/orchestrator"
)

var (
	// Global flags
	sourceName      string
	spreadsheetPath string
	sqlitePath      string
	artifactRoot    string
	objectivesPath  string
	rosterPath      string
)

var rootCmd = &cobra.Command{
	Use:   "atactl",
	Short: "Compose Conselho de Classe minutes from the command line",
	Long: `atactl drives the same workflow as the HTTP server without starting it.

Available subcommands:
  compose      - print the composed ata text
  render       - write the ata PDF to a file
  import       - mirror a responses workbook into the SQLite database
  participants - list the participant roster
  health       - check the configured record source`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		for _, name := range []string{".env", "api.env"} {
			if err := godotenv.Load(name); err == nil {
				common.Logger().Debugw("atactl: environment loaded", "file", name)
			}
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		common.SyncLogger()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&sourceName, "source", "", "record source: supabase, spreadsheet or sqlite")
	flags.StringVar(&spreadsheetPath, "spreadsheet", "", "path to the responses workbook")
	flags.StringVar(&sqlitePath, "sqlite", "", "path to the SQLite mirror database")
	flags.StringVar(&artifactRoot, "artifacts", "", "directory for generated files")
	flags.StringVar(&objectivesPath, "objectives", "", "path to the objectives file")
	flags.StringVar(&rosterPath, "roster", "", "path to the participants workbook")

	rootCmd.AddCommand(composeCmd, renderCmd, importCmd, participantsCmd, healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig overlays the global flags on the environment configuration.
func loadConfig() (orchestrator.Config, error) {
	cfg, err := orchestrator.LoadConfig()
	if err != nil {
		return cfg, err
	}
	overrides := []struct {
		value  string
		target *string
	}{
		{sourceName, &cfg.Source},
		{spreadsheetPath, &cfg.SpreadsheetPath},
		{sqlitePath, &cfg.SQLitePath},
		{artifactRoot, &cfg.ArtifactRoot},
		{objectivesPath, &cfg.ObjectivesPath},
		{rosterPath, &cfg.RosterPath},
	}
	for _, o := range overrides {
		if trimmed := strings.TrimSpace(o.value); trimmed != "" {
			*o.target = trimmed
		}
	}
	cfg.Watch = false
	return cfg, nil
}

func openOrchestrator(ctx context.Context, opts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	orch, err := orchestrator.New(ctx, cfg, append(opts, orchestrator.WithWatchDisabled())...)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	return orch, nil
}
