// File path: cmd/ata/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/ata_conselho/internal/api"
	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/data/orchestrator"
)

var envFiles = []string{".env", "api.env"}

func main() {
	logger := common.Logger()
	defer common.SyncLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loaded := 0
	for _, name := range envFiles {
		if err := godotenv.Load(name); err == nil {
			logger.Infow("ata: environment loaded", "file", name)
			loaded++
		}
	}
	if loaded == 0 {
		logger.Warnw("ata: no env file loaded", "candidates", envFiles)
	}

	addr := flag.String("addr", defaultAddr(), "listen address")
	source := flag.String("source", "", "record source: supabase, spreadsheet or sqlite")
	spreadsheetPath := flag.String("spreadsheet", "", "path to the responses workbook")
	sqlitePath := flag.String("sqlite", "", "path to the SQLite mirror database")
	artifacts := flag.String("artifacts", "", "directory for generated PDFs and archives")
	watch := flag.String("watch", "", "reload workbooks and objectives on change (true/false)")
	optionsTTL := flag.String("options-ttl", "", "lifetime of cached filter options (e.g. 30s, 2m)")
	maxBody := flag.Int64("max-body", 0, "maximum request body size in bytes")
	flag.Parse()

	orchCfg, err := orchestrator.LoadConfig()
	if err != nil {
		logger.Errorw("ata: orchestrator config load failed", "error", err)
		fmt.Println("orchestrator config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*source); trimmed != "" {
		orchCfg.Source = trimmed
	}
	if trimmed := strings.TrimSpace(*spreadsheetPath); trimmed != "" {
		orchCfg.SpreadsheetPath = trimmed
	}
	if trimmed := strings.TrimSpace(*sqlitePath); trimmed != "" {
		orchCfg.SQLitePath = trimmed
	}
	if trimmed := strings.TrimSpace(*artifacts); trimmed != "" {
		orchCfg.ArtifactRoot = trimmed
	}
	if trimmed := strings.TrimSpace(*watch); trimmed != "" {
		switch strings.ToLower(trimmed) {
		case "1", "true", "yes", "on":
			orchCfg.Watch = true
		case "0", "false", "no", "off":
			orchCfg.Watch = false
		default:
			logger.Errorw("ata: invalid watch flag", "value", trimmed)
			fmt.Println("watch flag error: expected true or false")
			os.Exit(1)
		}
	}
	if trimmed := strings.TrimSpace(*optionsTTL); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Errorw("ata: invalid options ttl", "value", trimmed, "error", err)
			fmt.Println("options ttl error:", err)
			os.Exit(1)
		}
		orchCfg.OptionsTTL = dur
	}

	logger.Infow("ata: startup initiated", "addr", *addr, "source", orchCfg.Source, "artifacts", orchCfg.ArtifactRoot)

	orch, err := orchestrator.New(ctx, orchCfg)
	if err != nil {
		logger.Errorw("ata: orchestrator initialization failed", "error", err)
		fmt.Println("orchestrator error:", err)
		os.Exit(1)
	}
	defer orch.Close()

	cfg := api.DefaultConfig()
	if *maxBody > 0 {
		cfg.MaxBodyBytes = *maxBody
	}
	server, err := api.NewServer(orch, &cfg)
	if err != nil {
		logger.Errorw("ata: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Infow("ata: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Infow("ata: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/v1/health", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Errorw("ata: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// defaultAddr honours PORT the way hosted runtimes set it.
func defaultAddr() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":8080"
}
