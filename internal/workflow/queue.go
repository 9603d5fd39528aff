// File path: internal/workflow/queue.go
package workflow

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/common/telemetry"
	"github.com/nicodishanthj/ata_conselho/internal/mail"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/sqlite"
)

const (
	queueDirName = "queue"

	MailSubject = "Atas do Conselho de Classe"
	MailBody    = "Segue em anexo o arquivo .zip com as atas geradas."
)

// QueueItem is one rendered ata waiting to be delivered.
type QueueItem struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Number    string         `json:"numero_ata"`
	Filter    records.Filter `json:"filtros"`
	SizeBytes int64          `json:"size_bytes"`
	QueuedAt  time.Time      `json:"queued_at"`
}

// FinalizeResult describes a finalized archive. Mail failures are reported
// here rather than as errors so the archive stays downloadable.
type FinalizeResult struct {
	ZipName   string   `json:"zip_name"`
	Files     []string `json:"files"`
	EmailSent bool     `json:"email_sent"`
	Message   string   `json:"message"`
}

// Enqueue renders req and adds the PDF to the delivery queue. An ata with the
// same file name replaces the queued one.
func (s *Service) Enqueue(ctx context.Context, req Request) (QueueItem, []QueueItem, error) {
	normalized, err := normalizeRequest(req)
	if err != nil {
		return QueueItem{}, nil, err
	}
	if s.artifactRoot == "" {
		return QueueItem{}, nil, fmt.Errorf("workflow: artifact root unavailable")
	}
	artifact, err := s.renderPDF(ctx, normalized)
	if err != nil {
		return QueueItem{}, nil, err
	}
	item := QueueItem{
		ID:        uuid.NewString(),
		Name:      artifact.Name,
		Path:      filepath.Join(s.artifactRoot, queueDirName, artifact.Name),
		Number:    normalized.Number.String(),
		Filter:    normalized.Filter(),
		SizeBytes: int64(len(artifact.Data)),
		QueuedAt:  s.now().UTC(),
	}

	s.queueMu.Lock()
	if err := writeFileAtomic(item.Path, artifact.Data); err != nil {
		s.queueMu.Unlock()
		return QueueItem{}, nil, fmt.Errorf("write queued ata: %w", err)
	}
	kept := s.queue[:0]
	for _, existing := range s.queue {
		if existing.Name != item.Name {
			kept = append(kept, existing)
		}
	}
	s.queue = append(kept, item)
	if err := s.saveQueueLocked(); err != nil {
		common.Logger().Warnw("workflow: save queue failed", "error", err)
	}
	snapshot := append([]QueueItem(nil), s.queue...)
	s.queueMu.Unlock()

	if s.exports != nil {
		exp := sqlite.Export{
			ID:        item.ID,
			Number:    item.Number,
			FileName:  item.Name,
			Year:      item.Filter.Year,
			Shift:     item.Filter.Shift,
			ClassID:   item.Filter.ClassID,
			Trimester: item.Filter.Trimester,
			President: normalized.President.String(),
			SizeBytes: item.SizeBytes,
		}
		if err := s.exports.RecordExport(ctx, exp); err != nil {
			common.Logger().Warnw("workflow: record export failed", "id", item.ID, "error", err)
		}
	}
	telemetry.RecordExport("queue")
	s.AppendLog("info", "Ata %s queued as %s (%d in queue)", item.Number, item.Name, len(snapshot))
	return item, snapshot, nil
}

// Queue returns the queued atas in insertion order.
func (s *Service) Queue() []QueueItem {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return append([]QueueItem{}, s.queue...)
}

// QueueNames returns the file names of the queued atas.
func (s *Service) QueueNames() []string {
	items := s.Queue()
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

// Reset empties the queue and removes the queued PDFs. Finalized archives are
// kept.
func (s *Service) Reset() error {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	for _, item := range s.queue {
		if err := os.Remove(item.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			common.Logger().Warnw("workflow: remove queued ata failed", "path", item.Path, "error", err)
		}
	}
	count := len(s.queue)
	s.queue = nil
	if err := s.saveQueueLocked(); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	s.AppendLog("info", "Queue reset (%d atas discarded)", count)
	return nil
}

// Finalize zips every queued ata and mails the archive to email. The queue
// is left untouched.
func (s *Service) Finalize(ctx context.Context, email string) (FinalizeResult, error) {
	items := s.Queue()
	if len(items) == 0 {
		return FinalizeResult{}, ErrQueueEmpty
	}
	email = strings.TrimSpace(email)
	if err := requestValidator().Var(email, "required,email"); err != nil {
		return FinalizeResult{}, ErrRecipientRequired
	}

	ctx, end := telemetry.StartSpan(ctx, "workflow.finalize")
	zipName := fmt.Sprintf("atas_conselho_%d_%s.zip", s.now().Unix(), uuid.NewString()[:8])
	zipPath := filepath.Join(s.artifactRoot, zipName)
	files, err := writeZip(zipPath, items)
	if err != nil {
		end("error", err)
		return FinalizeResult{}, fmt.Errorf("build archive: %w", err)
	}
	telemetry.RecordExport("zip")
	result := FinalizeResult{ZipName: zipName, Files: files}

	if err := s.mailArchive(ctx, email, zipPath, zipName); err != nil {
		result.Message = fmt.Sprintf("Não foi possível enviar por e-mail automaticamente (%v). Você pode baixar o ZIP pelo link.", err)
		s.AppendLog("warn", "Archive %s not mailed to %s: %v", zipName, email, err)
	} else {
		result.EmailSent = true
		result.Message = "ZIP enviado por e-mail com sucesso!"
		telemetry.RecordExport("mail")
		s.AppendLog("info", "Archive %s mailed to %s", zipName, email)
	}
	end("files", len(files), "email_sent", result.EmailSent)
	return result, nil
}

func (s *Service) mailArchive(ctx context.Context, email, zipPath, zipName string) error {
	if s.mailer == nil || !s.mailer.Configured() {
		return mail.ErrNotConfigured
	}
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, mail.Message{
		To:          []string{email},
		Subject:     MailSubject,
		Body:        MailBody,
		Attachments: []mail.Attachment{{Name: zipName, Data: data}},
	})
}

// ArchivePath resolves a finalized archive or queued ata by file name.
func (s *Service) ArchivePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrArtifactNotFound
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", ErrArtifactInvalid
	}
	if !downloadable(name) {
		return "", ErrArtifactInvalid
	}
	if s.artifactRoot == "" {
		return "", ErrArtifactNotFound
	}
	for _, candidate := range []string{
		filepath.Join(s.artifactRoot, name),
		filepath.Join(s.artifactRoot, queueDirName, name),
	} {
		path, err := s.validateArtifactPath(candidate)
		if errors.Is(err, ErrArtifactNotFound) {
			continue
		}
		return path, err
	}
	return "", ErrArtifactNotFound
}

// downloadable limits downloads to generated atas and archives; queue state
// and temporary files stay private.
func downloadable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip", ".pdf":
		return true
	}
	return false
}

func (s *Service) validateArtifactPath(path string) (string, error) {
	absPath, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("resolve artifact path: %w", err)
	}
	root := strings.TrimSpace(s.artifactRoot)
	if root != "" {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("resolve artifact root: %w", err)
		}
		rel, err := filepath.Rel(rootAbs, absPath)
		if err != nil {
			return "", fmt.Errorf("resolve artifact path: %w", err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return "", ErrArtifactInvalid
		}
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrArtifactNotFound
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return "", ErrArtifactInvalid
	}
	return absPath, nil
}

func writeZip(path string, items []QueueItem) ([]string, error) {
	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	zw := zip.NewWriter(file)
	names := make([]string, 0, len(items))
	for _, item := range items {
		if err := addZipEntry(zw, item); err != nil {
			_ = zw.Close()
			_ = file.Close()
			_ = os.Remove(tmpPath)
			return nil, err
		}
		names = append(names, item.Name)
	}
	if err := zw.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	return names, os.Rename(tmpPath, path)
}

func addZipEntry(zw *zip.Writer, item QueueItem) error {
	src, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.Name, err)
	}
	defer src.Close()
	header := &zip.FileHeader{Name: item.Name, Method: zip.Deflate, Modified: item.QueuedAt}
	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func (s *Service) loadQueue() error {
	if s.queuePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.queuePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var stored []QueueItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	for _, item := range stored {
		if _, err := os.Stat(item.Path); err != nil {
			continue
		}
		s.queue = append(s.queue, item)
	}
	return nil
}

func (s *Service) saveQueueLocked() error {
	if s.queuePath == "" {
		return nil
	}
	tmpPath := s.queuePath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	if err := enc.Encode(s.queue); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.queuePath)
}
