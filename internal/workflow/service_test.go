// File path: internal/workflow/service_test.go
package workflow

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/ata_conselho/internal/mail"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/sqlite"
)

type fakeSource struct {
	mu      sync.Mutex
	recs    []records.Record
	err     error
	filters []records.Filter
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, filter records.Filter) (records.Table, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.err != nil {
		return records.Table{}, f.err
	}
	table := records.Table{Columns: records.DefaultColumnMap()}
	for _, rec := range f.recs {
		table.Rows = append(table.Rows, records.Row{
			"ano": rec.Year, "turno": rec.Shift, "turma": rec.ClassID, "trimestre": rec.Trimester,
			"aluno": rec.Student, "materia": rec.Subject, "descricao": rec.Description,
		})
	}
	return filter.Apply(table), nil
}

type fakeMailer struct {
	configured bool
	err        error
	sent       []mail.Message
}

func (f *fakeMailer) Configured() bool { return f.configured }

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeExports struct {
	exports []sqlite.Export
}

func (f *fakeExports) RecordExport(_ context.Context, exp sqlite.Export) error {
	f.exports = append(f.exports, exp)
	return nil
}

func sampleRecords() []records.Record {
	return []records.Record{
		{Year: "2", Shift: "Manhã", ClassID: "A", Trimester: "1", Student: "Carlos", Subject: "Matemática", Description: "Bom progresso"},
		{Year: "2", Shift: "Manhã", ClassID: "A", Trimester: "1", Student: "Bia", Subject: "Arte", Description: "Criativa"},
		{Year: "3", Shift: "Tarde", ClassID: "B", Trimester: "2", Student: "Lia", Subject: "Arte", Description: "Atenta"},
		{Year: "Integral", Shift: "Integral", ClassID: "A", Trimester: "1", Student: "Carlos", Subject: "Xadrez", Description: "Concentrado"},
		{Year: "Integral", Shift: "Integral", ClassID: "B", Trimester: "1", Student: "Bia", Subject: "Dança", Description: "Outra turma"},
	}
}

func sampleRequest() Request {
	return Request{
		Year:         "2",
		Shift:        "Manhã",
		ClassID:      "A",
		Trimester:    "1",
		Number:       "12/2025",
		Date:         "2025-08-21",
		Start:        "14:00",
		End:          "16:00",
		President:    "Maria",
		Participants: Participants{"João", "Ana"},
	}
}

func newTestService(t *testing.T, src *fakeSource) *Service {
	t.Helper()
	svc, err := NewService(Config{Source: src, ArtifactRoot: filepath.Join(t.TempDir(), "artifacts")})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSource(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorIs(t, err, records.ErrSourceUnavailable)
}

func TestComposeTextCorrelatesIntegralRecords(t *testing.T) {
	src := &fakeSource{recs: sampleRecords()}
	svc := newTestService(t, src)

	text, err := svc.ComposeText(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Ata nº 12/2025. "), text)
	assert.Contains(t, text, "Carlos: Matemática: Bom progresso. Xadrez: Concentrado.")
	assert.NotContains(t, text, "Outra turma")
	assert.Less(t, strings.Index(text, "Carlos:"), strings.Index(text, "Bia:"), "students keep first-appearance order")
}

func TestComposeTextFallsBackToTrimesterRecords(t *testing.T) {
	src := &fakeSource{recs: sampleRecords()[:3]}
	svc := newTestService(t, src)

	_, err := svc.ComposeText(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, src.filters, records.Filter{Year: "Integral", Trimester: "1"})
	assert.Contains(t, src.filters, records.Filter{Trimester: "1"})
}

func TestComposeTextNoRecords(t *testing.T) {
	svc := newTestService(t, &fakeSource{recs: sampleRecords()})
	req := sampleRequest()
	req.ClassID = "Z"
	_, err := svc.ComposeText(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestComposeTextSourceError(t *testing.T) {
	boom := errors.New("boom")
	svc := newTestService(t, &fakeSource{err: boom})
	_, err := svc.ComposeText(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, boom)
}

func TestComposeTextValidation(t *testing.T) {
	svc := newTestService(t, &fakeSource{recs: sampleRecords()})
	req := sampleRequest()
	req.Year = "  "
	req.Participants = nil
	req.Date = "21/08/2025"
	req.Start = "2pm"

	_, err := svc.ComposeText(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"ano", "participantes"}, verr.Missing)
	assert.Equal(t, []string{"data_reuniao", "horario_inicio"}, verr.Invalid)
	assert.True(t, strings.HasPrefix(verr.Error(), "Campos obrigatórios ausentes: ano, participantes"), verr.Error())
}

func TestRequestDecodesFlexibleFields(t *testing.T) {
	payload := `{"ano":"2","turno":"Manhã","turma":"A","trimestre":1,"numero_ata":7,
		"data_reuniao":"2025-08-21","horario_inicio":"14:00","horario_fim":"16:00",
		"presidente":"Maria","participantes":"João\n\n Ana \r\nLuis"}`
	var req Request
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	assert.Equal(t, Field("1"), req.Trimester)
	assert.Equal(t, Field("7"), req.Number)
	assert.Equal(t, Participants{"João", "Ana", "Luis"}, req.Participants)

	require.NoError(t, json.Unmarshal([]byte(`{"participantes":["A"," ",""]}`), &req))
	assert.Equal(t, Participants{"A"}, req.Participants)
}

func TestRenderPDFNamesArtifact(t *testing.T) {
	svc := newTestService(t, &fakeSource{recs: sampleRecords()})
	req := sampleRequest()
	req.EditedText = "Texto revisado pela coordenação."
	artifact, err := svc.RenderPDF(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ATA_12_2025.pdf", artifact.Name)
	assert.True(t, strings.HasPrefix(string(artifact.Data), "%PDF-"))
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"12/2025":     "12_2025",
		"ata 3 (rev)": "ata_3_rev_",
		"v1.2-final":  "v1.2-final",
		"nº 4":        "n_4",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestQueueLifecycle(t *testing.T) {
	src := &fakeSource{recs: sampleRecords()}
	exports := &fakeExports{}
	mailer := &fakeMailer{configured: true}
	root := filepath.Join(t.TempDir(), "artifacts")
	svc, err := NewService(Config{Source: src, ArtifactRoot: root, Mailer: mailer, Exports: exports})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	_, err = svc.Finalize(ctx, "coord@example.com")
	require.ErrorIs(t, err, ErrQueueEmpty)

	first, queue, err := svc.Enqueue(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ATA_12_2025.pdf", first.Name)
	assert.Len(t, queue, 1)

	second := sampleRequest()
	second.Number = "13"
	_, _, err = svc.Enqueue(ctx, second)
	require.NoError(t, err)
	_, _, err = svc.Enqueue(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"ATA_13.pdf", "ATA_12_2025.pdf"}, svc.QueueNames(), "re-queued ata replaces the old entry")
	require.Len(t, exports.exports, 3)
	assert.Equal(t, "Maria", exports.exports[0].President)

	_, err = svc.Finalize(ctx, "not-an-email")
	require.ErrorIs(t, err, ErrRecipientRequired)

	result, err := svc.Finalize(ctx, "coord@example.com")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^atas_conselho_1700000000_[0-9a-f]{8}\.zip$`), result.ZipName)
	assert.True(t, result.EmailSent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, MailSubject, mailer.sent[0].Subject)
	assert.Equal(t, result.ZipName, mailer.sent[0].Attachments[0].Name)

	path, err := svc.ArchivePath(result.ZipName)
	require.NoError(t, err)
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 2)
	assert.Equal(t, "ATA_13.pdf", zr.File[0].Name)

	// A restarted service picks the queue up from disk.
	reloaded, err := NewService(Config{Source: src, ArtifactRoot: root})
	require.NoError(t, err)
	assert.Len(t, reloaded.Queue(), 2)

	require.NoError(t, svc.Reset())
	assert.Empty(t, svc.Queue())
	_, err = os.Stat(first.Path)
	assert.True(t, os.IsNotExist(err), "queued pdf removed, got %v", err)
	_, err = svc.ArchivePath(result.ZipName)
	assert.NoError(t, err, "archive survives reset")
}

func TestFinalizeSameSecondKeepsBothArchives(t *testing.T) {
	svc := newTestService(t, &fakeSource{recs: sampleRecords()})
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()
	_, _, err := svc.Enqueue(ctx, sampleRequest())
	require.NoError(t, err)

	first, err := svc.Finalize(ctx, "coord@example.com")
	require.NoError(t, err)
	second, err := svc.Finalize(ctx, "coord@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.ZipName, second.ZipName)
	for _, name := range []string{first.ZipName, second.ZipName} {
		_, err := svc.ArchivePath(name)
		assert.NoError(t, err, name)
	}
}

func TestFinalizeReportsMailFailure(t *testing.T) {
	mailer := &fakeMailer{configured: true, err: errors.New("smtp down")}
	svc, err := NewService(Config{Source: &fakeSource{recs: sampleRecords()}, ArtifactRoot: t.TempDir(), Mailer: mailer})
	require.NoError(t, err)
	_, _, err = svc.Enqueue(context.Background(), sampleRequest())
	require.NoError(t, err)

	result, err := svc.Finalize(context.Background(), "coord@example.com")
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.Contains(t, result.Message, "smtp down")
	_, err = svc.ArchivePath(result.ZipName)
	assert.NoError(t, err, "archive stays downloadable")
}

func TestArchivePathRejectsTraversal(t *testing.T) {
	svc := newTestService(t, &fakeSource{})
	outside := filepath.Join(filepath.Dir(svc.ArtifactRoot()), "secret.zip")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, err := svc.ArchivePath("../secret.zip")
	assert.ErrorIs(t, err, ErrArtifactInvalid)
	_, err = svc.validateArtifactPath(outside)
	assert.ErrorIs(t, err, ErrArtifactInvalid)
	_, err = svc.ArchivePath("missing.zip")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestArchivePathServesOnlyAtasAndArchives(t *testing.T) {
	svc := newTestService(t, &fakeSource{recs: sampleRecords()})
	item, _, err := svc.Enqueue(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(svc.ArtifactRoot(), "queue.json"))
	require.NoError(t, os.WriteFile(filepath.Join(svc.ArtifactRoot(), "queue.json.tmp"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(svc.ArtifactRoot(), "notes.txt"), []byte("x"), 0o644))

	for _, name := range []string{"queue.json", "queue.json.tmp", "notes.txt"} {
		_, err := svc.ArchivePath(name)
		assert.ErrorIs(t, err, ErrArtifactInvalid, name)
	}
	path, err := svc.ArchivePath(item.Name)
	require.NoError(t, err)
	assert.Equal(t, item.Path, path)
}

func TestOptionsModesAndCache(t *testing.T) {
	src := &fakeSource{recs: append(sampleRecords(),
		records.Record{Year: "2", Shift: "Manhã", ClassID: "B", Trimester: "3", Student: "Rui"},
		records.Record{Year: "2", Shift: "Manhã", ClassID: "A", Trimester: "x", Student: "Rui"},
	)}
	svc := newTestService(t, src)
	ctx := context.Background()

	global, err := svc.Options(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "Integral"}, global.Years)
	assert.Equal(t, []string{"Integral", "Manhã", "Tarde"}, global.Shifts)
	assert.Nil(t, global.Classes, "global mode does not list classes")

	scoped, err := svc.Options(ctx, "2", "Manhã")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, scoped.Classes)
	assert.Equal(t, []string{"1", "3"}, scoped.Trimesters)

	calls := len(src.filters)
	_, err = svc.Options(ctx, "2", "Manhã")
	require.NoError(t, err)
	assert.Len(t, src.filters, calls, "options are cached")

	svc.InvalidateOptions()
	_, err = svc.Options(ctx, "2", "Manhã")
	require.NoError(t, err)
	assert.Len(t, src.filters, calls+1, "refetch after invalidation")
}

func TestHealth(t *testing.T) {
	src := &fakeSource{recs: sampleRecords()}
	svc := newTestService(t, src)
	report := svc.Health(context.Background())
	assert.True(t, report.OK)
	assert.Equal(t, 5, report.Counts["rows_previewed"])
	assert.Equal(t, 2, report.Counts["turmas"])
	require.NotEmpty(t, src.filters)
	assert.Equal(t, HealthPreviewRows, src.filters[len(src.filters)-1].Limit)

	failing := newTestService(t, &fakeSource{err: errors.New("offline")})
	report = failing.Health(context.Background())
	assert.False(t, report.OK)
	assert.Equal(t, "error", report.Status)
	assert.Equal(t, "offline", report.Error)
}

func TestHealthPreviewIsCapped(t *testing.T) {
	recs := make([]records.Record, 0, HealthPreviewRows+25)
	for i := 0; i < HealthPreviewRows+25; i++ {
		recs = append(recs, records.Record{Year: "2", Shift: "Manhã", ClassID: "A", Trimester: "1", Student: "Aluno"})
	}
	svc := newTestService(t, &fakeSource{recs: recs})
	report := svc.Health(context.Background())
	require.True(t, report.OK)
	assert.Equal(t, HealthPreviewRows, report.Counts["rows_previewed"])
}

func TestAppendLogKeepsRecentEntries(t *testing.T) {
	svc := newTestService(t, &fakeSource{})
	for i := 0; i < maxLogEntries+10; i++ {
		svc.AppendLog("debug", "entry %d", i)
	}
	logs := svc.Logs()
	require.Len(t, logs, maxLogEntries)
	assert.Equal(t, "entry 509", logs[len(logs)-1].Message)
}
