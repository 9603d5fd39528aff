// File path: cmd/atactl/commands.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/data/orchestrator"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/workflow"
)

// requestFlags holds the meeting fields shared by compose and render.
type requestFlags struct {
	year, shift, classID, trimester string
	number, date, start, end        string
	president                       string
	participants                    []string
}

var (
	reqFlags   requestFlags
	outputPath string
	importFrom string
	forceRead  bool
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Print the composed ata text",
	RunE:  runCompose,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the ata PDF",
	Long:  `Render the ata PDF. Without --out the file is written to the current directory as ATA_<number>.pdf.`,
	RunE:  runRender,
}

var importCmd = &cobra.Command{
	Use:   "import <workbook>",
	Short: "Mirror a responses workbook into the SQLite database",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "List the participant roster",
	RunE:  runParticipants,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the configured record source",
	RunE:  runHealth,
}

func init() {
	for _, cmd := range []*cobra.Command{composeCmd, renderCmd} {
		flags := cmd.Flags()
		flags.StringVar(&reqFlags.year, "ano", "", "school year")
		flags.StringVar(&reqFlags.shift, "turno", "", "shift")
		flags.StringVar(&reqFlags.classID, "turma", "", "class letter")
		flags.StringVar(&reqFlags.trimester, "trimestre", "", "trimester (1-3)")
		flags.StringVar(&reqFlags.number, "numero", "", "ata number")
		flags.StringVar(&reqFlags.date, "data", "", "meeting date (YYYY-MM-DD)")
		flags.StringVar(&reqFlags.start, "inicio", "", "start time (HH:MM)")
		flags.StringVar(&reqFlags.end, "fim", "", "end time (HH:MM)")
		flags.StringVar(&reqFlags.president, "presidente", "", "meeting president")
		flags.StringArrayVar(&reqFlags.participants, "participante", nil, "participant name (repeatable)")
	}
	renderCmd.Flags().StringVarP(&outputPath, "out", "o", "", "output PDF path")
	importCmd.Flags().StringVar(&importFrom, "sheet", "", "worksheet name (first sheet when empty)")
	participantsCmd.Flags().BoolVar(&forceRead, "force", false, "re-read the workbook")
}

func (f requestFlags) request() workflow.Request {
	return workflow.Request{
		Year:         workflow.Field(f.year),
		Shift:        workflow.Field(f.shift),
		ClassID:      workflow.Field(f.classID),
		Trimester:    workflow.Field(f.trimester),
		Number:       workflow.Field(f.number),
		Date:         workflow.Field(f.date),
		Start:        workflow.Field(f.start),
		End:          workflow.Field(f.end),
		President:    workflow.Field(f.president),
		Participants: workflow.Participants(f.participants),
	}
}

func runCompose(cmd *cobra.Command, args []string) error {
	orch, err := openOrchestrator(cmd.Context())
	if err != nil {
		return err
	}
	defer orch.Close()

	text, err := orch.Service().ComposeText(cmd.Context(), reqFlags.request())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	orch, err := openOrchestrator(cmd.Context())
	if err != nil {
		return err
	}
	defer orch.Close()

	artifact, err := orch.Service().RenderPDF(cmd.Context(), reqFlags.request())
	if err != nil {
		return err
	}
	target := strings.TrimSpace(outputPath)
	if target == "" {
		target = artifact.Name
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(target, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", target, len(artifact.Data))
	return nil
}

// runImport reads every row of the workbook and upserts it into the mirror.
func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(args) == 1 {
		cfg.SpreadsheetPath = strings.TrimSpace(args[0])
	}
	if trimmed := strings.TrimSpace(importFrom); trimmed != "" {
		cfg.SpreadsheetSheet = trimmed
	}
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		return fmt.Errorf("import requires --sqlite or ATA_SQLITE_PATH")
	}
	cfg.Source = orchestrator.SourceSpreadsheet

	orch, err := orchestrator.New(cmd.Context(), cfg, orchestrator.WithWatchDisabled())
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}
	defer orch.Close()

	table, err := orch.Source().Fetch(cmd.Context(), records.Filter{})
	if err != nil {
		return err
	}
	written, err := orch.Catalog().Import(cmd.Context(), "spreadsheet:"+filepath.Base(cfg.SpreadsheetPath), table.Records())
	if err != nil {
		return err
	}
	total, err := orch.Catalog().CountRecords(cmd.Context())
	if err != nil {
		return err
	}
	common.Logger().Infow("atactl: import finished", "rows", written, "total", total, "workbook", cfg.SpreadsheetPath)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows (%d in mirror)\n", written, total)
	return nil
}

func runParticipants(cmd *cobra.Command, args []string) error {
	orch, err := openOrchestrator(cmd.Context())
	if err != nil {
		return err
	}
	defer orch.Close()

	for _, name := range orch.Service().Participants(forceRead) {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	orch, err := openOrchestrator(cmd.Context())
	if err != nil {
		return err
	}
	defer orch.Close()

	report := orch.Service().Health(cmd.Context())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source: %s\nstatus: %s\n", report.Source, report.Status)
	if report.Error != "" {
		fmt.Fprintf(out, "error: %s\n", report.Error)
	}
	for _, key := range []string{"rows_previewed", "anos", "turnos", "turmas", "trimestres"} {
		fmt.Fprintf(out, "%s: %d\n", key, report.Counts[key])
	}
	if !report.OK {
		return fmt.Errorf("source %s unhealthy", report.Source)
	}
	return nil
}
