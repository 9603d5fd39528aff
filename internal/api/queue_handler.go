// File path: internal/api/queue_handler.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAtaRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	item, queue, err := s.workflow.Enqueue(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	names := make([]string, 0, len(queue))
	for _, q := range queue {
		names = append(names, q.Name)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"queued":  item.Name,
		"queue":   names,
	})
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	items := s.workflow.Queue()
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"queue":   names,
		"items":   items,
	})
}

func (s *Server) handleQueueFinalize(w http.ResponseWriter, r *http.Request) {
	email, err := decodeEmail(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	result, err := s.workflow.Finalize(r.Context(), email)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"email_sent":   result.EmailSent,
		"message":      result.Message,
		"zip_name":     result.ZipName,
		"files":        result.Files,
		"download_url": "/v1/queue/download?file=" + url.QueryEscape(result.ZipName),
	})
}

func (s *Server) handleQueueDownload(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("file"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("Arquivo não especificado"))
		return
	}
	path, err := s.workflow.ArchivePath(name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	file, err := os.Open(path)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	base := filepath.Base(path)
	w.Header().Set("Content-Type", detectContentType(base))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", base))
	http.ServeContent(w, r, base, info.ModTime(), file)
}

func (s *Server) handleQueueReset(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.Reset(); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func detectContentType(name string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".zip":
		return "application/zip"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
