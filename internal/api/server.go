// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/data/orchestrator"
	"github.com/nicodishanthj/ata_conselho/internal/lexical"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/workflow"
)

type Server struct {
	router   chi.Router
	workflow *workflow.Service
	cfg      Config

	orchestrator *orchestrator.Orchestrator
}

// Config controls request limits of the API server.
type Config struct {
	MaxBodyBytes int64
}

// DefaultConfig returns the standard configuration used when no overrides are
// provided.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: 4 << 20}
}

// Merge overlays positive values from the override onto the base
// configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if override.MaxBodyBytes > 0 {
		result.MaxBodyBytes = override.MaxBodyBytes
	}
	return result
}

func NewServer(orch *orchestrator.Orchestrator, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	svc := orch.Service()
	if svc == nil {
		return nil, fmt.Errorf("workflow service unavailable")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	srv := &Server{
		router:       chi.NewRouter(),
		workflow:     svc,
		cfg:          configuration,
		orchestrator: orch,
	}
	srv.routes()
	logger.Infow("api: server ready", "source", svc.SourceName(), "watching", orch.Watching())
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
			next.ServeHTTP(w, r)
			logger.Debugw("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/debug/vars", expvar.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/participants", s.handleParticipants)
		r.Get("/options", s.handleOptions)
		r.Post("/compose_text", s.handleComposeText)
		r.Post("/generate_pdf", s.handleGeneratePDF)
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.handleQueueList)
			r.Post("/", s.handleQueueAdd)
			r.Post("/finalize", s.handleQueueFinalize)
			r.Get("/download", s.handleQueueDownload)
			r.Post("/reset", s.handleQueueReset)
		})
		r.Post("/objectives/reload", s.handleObjectivesReload)
		r.Get("/exports", s.handleExports)
		r.Get("/logs", s.handleLogs)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "status", status, "error", err)
	} else {
		logger.Warnw("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]interface{}{"success": false, "error": errorMessage(err)})
}

// writeFailure maps workflow errors to a status code.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	var (
		verr   *workflow.ValidationError
		perr   *lexical.ParseError
		decode *decodeError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &perr), errors.As(err, &decode):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrQueueEmpty), errors.Is(err, workflow.ErrRecipientRequired):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrNoRecords), errors.Is(err, workflow.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrArtifactInvalid):
		return http.StatusForbidden
	case errors.Is(err, records.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the user-facing text of err.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, workflow.ErrNoRecords):
		return "Nenhum dado encontrado para os filtros."
	case errors.Is(err, workflow.ErrQueueEmpty):
		return "A fila de atas está vazia."
	case errors.Is(err, workflow.ErrRecipientRequired):
		return "Informe um e-mail válido."
	case errors.Is(err, workflow.ErrArtifactNotFound):
		return "Arquivo não encontrado"
	case errors.Is(err, workflow.ErrArtifactInvalid):
		return "Arquivo inválido"
	}
	return err.Error()
}
