// File path: internal/api/ata_handler.go
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nicodishanthj/ata_conselho/internal/common"
)

func (s *Server) handleComposeText(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAtaRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	text, err := s.workflow.ComposeText(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "texto": text})
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAtaRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	artifact, err := s.workflow.RenderPDF(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	common.Logger().Infow("api: pdf generated", "file", artifact.Name, "bytes", len(artifact.Data))
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", artifact.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}
