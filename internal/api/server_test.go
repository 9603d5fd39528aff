// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/ata_conselho/internal/data/orchestrator"
	"github.com/nicodishanthj/ata_conselho/internal/mail"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

type memorySource struct {
	mu   sync.Mutex
	recs []records.Record
}

func (m *memorySource) Name() string { return "memory" }

func (m *memorySource) Fetch(_ context.Context, filter records.Filter) (records.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := records.Table{Columns: records.DefaultColumnMap()}
	for _, rec := range m.recs {
		if filter.Match(rec) {
			table.Rows = append(table.Rows, records.Row{
				"ano": rec.Year, "turno": rec.Shift, "turma": rec.ClassID, "trimestre": rec.Trimester,
				"aluno": rec.Student, "materia": rec.Subject, "descricao": rec.Description,
			})
		}
	}
	return table, nil
}

type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Configured() bool { return true }

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func newTestServer(t *testing.T) (*Server, *recordingMailer) {
	t.Helper()
	src := &memorySource{recs: []records.Record{
		{Year: "2", Shift: "Manhã", ClassID: "A", Trimester: "1", Student: "Carlos", Subject: "Matemática", Description: "Bom progresso"},
		{Year: "2", Shift: "Manhã", ClassID: "B", Trimester: "2", Student: "Bia", Subject: "Arte", Description: "Criativa"},
		{Year: "Integral", Shift: "Integral", ClassID: "A", Trimester: "1", Student: "Carlos", Subject: "Xadrez", Description: "Concentrado"},
	}}
	mailer := &recordingMailer{}
	orch, err := orchestrator.New(context.Background(),
		orchestrator.Config{ArtifactRoot: t.TempDir()},
		orchestrator.WithSource(src), orchestrator.WithMailer(mailer), orchestrator.WithWatchDisabled())
	require.NoError(t, err)
	t.Cleanup(func() { _ = orch.Close() })
	srv, err := NewServer(orch, nil)
	require.NoError(t, err)
	return srv, mailer
}

func ataPayload() map[string]interface{} {
	return map[string]interface{}{
		"ano":            "2",
		"turno":          "Manhã",
		"turma":          "A",
		"trimestre":      1,
		"numero_ata":     "7",
		"data_reuniao":   "2025-08-21",
		"horario_inicio": "14:00",
		"horario_fim":    "16:30",
		"presidente":     "Maria",
		"participantes":  "João\nAna",
	}
}

func doJSON(t *testing.T, srv *Server, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestComposeText(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/v1/compose_text", ataPayload())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	text := body["texto"].(string)
	assert.Contains(t, text, "com a participação de João e Ana.")
	assert.Contains(t, text, "Carlos: Matemática: Bom progresso. Xadrez: Concentrado.")
	assert.Contains(t, text, "encerro a presente ata às dezesseis horas e trinta minutos")
}

func TestComposeTextErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	payload := ataPayload()
	delete(payload, "presidente")
	payload["ano"] = ""
	rr := doJSON(t, srv, http.MethodPost, "/v1/compose_text", payload)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Campos obrigatórios ausentes: ano, presidente", body["error"])

	payload = ataPayload()
	payload["turma"] = "Z"
	rr = doJSON(t, srv, http.MethodPost, "/v1/compose_text", payload)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Nenhum dado encontrado para os filtros.", decodeBody(t, rr)["error"])

	req := httptest.NewRequest(http.MethodPost, "/v1/compose_text", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGeneratePDF(t *testing.T) {
	srv, _ := newTestServer(t)
	payload := ataPayload()
	payload["numero_ata"] = "7/2025"
	rr := doJSON(t, srv, http.MethodPost, "/v1/generate_pdf", payload)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="ATA_7_2025.pdf"`)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))
}

func TestQueueFlowWithFormPayload(t *testing.T) {
	srv, mailer := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range map[string]string{
		"ano": "2", "turno": "Manhã", "turma": "A", "trimestre": "1", "numero_ata": "9",
		"data_reuniao": "2025-08-21", "horario_inicio": "14:00", "horario_fim": "16:00",
		"presidente": "Maria", "participantes": "João\nAna",
	} {
		require.NoError(t, mw.WriteField(key, value))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/queue", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "ATA_9.pdf", decodeBody(t, rr)["queued"])

	rr = doJSON(t, srv, http.MethodGet, "/v1/queue", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []interface{}{"ATA_9.pdf"}, decodeBody(t, rr)["queue"])

	rr = doJSON(t, srv, http.MethodPost, "/v1/queue/finalize", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Informe um e-mail válido.", decodeBody(t, rr)["error"])

	rr = doJSON(t, srv, http.MethodPost, "/v1/queue/finalize", map[string]string{"email": "coord@example.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decodeBody(t, rr)
	assert.Equal(t, true, result["email_sent"])
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Atas do Conselho de Classe", mailer.sent[0].Subject)

	download := result["download_url"].(string)
	rr = doJSON(t, srv, http.MethodGet, download, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))

	rr = doJSON(t, srv, http.MethodGet, "/v1/queue/download?file="+url.QueryEscape("../etc/passwd"), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = doJSON(t, srv, http.MethodGet, "/v1/queue/download?file=queue.json", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.NotContains(t, rr.Body.String(), "ATA_9.pdf")
	rr = doJSON(t, srv, http.MethodGet, "/v1/queue/download", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/v1/queue/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, srv, http.MethodPost, "/v1/queue/finalize", map[string]string{"email": "coord@example.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "A fila de atas está vazia.", decodeBody(t, rr)["error"])
}

func TestOptions(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/v1/options", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, []interface{}{"2", "Integral"}, body["anos"])
	assert.NotContains(t, body, "turmas")

	rr = doJSON(t, srv, http.MethodGet, "/v1/options?ano=2&turno="+url.QueryEscape("Manhã"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decodeBody(t, rr)
	assert.Equal(t, []interface{}{"A", "B"}, body["turmas"])
	assert.Equal(t, []interface{}{"1", "2"}, body["trimestres"])

	rr = doJSON(t, srv, http.MethodGet, "/v1/options?ano=9", nil)
	body = decodeBody(t, rr)
	assert.Equal(t, []interface{}{}, body["turmas"])
}

func TestHealthAndParticipants(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "memory", body["source"])
	assert.Equal(t, true, body["mail_configured"])

	rr = doJSON(t, srv, http.MethodGet, "/v1/participants?force=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, rr)["participants"])

	rr = doJSON(t, srv, http.MethodGet, "/v1/exports", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLogsIncludeWorkflowEntries(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.workflow.AppendLog("info", "queue checked")
	rr := doJSON(t, srv, http.MethodGet, "/v1/logs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "queue checked")
}
