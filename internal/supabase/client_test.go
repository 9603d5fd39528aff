// File path: internal/supabase/client_test.go
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/ata_conselho/internal/records"
)

type fakePostgrest struct {
	t *testing.T

	mu       sync.Mutex
	rows     []map[string]any
	failures int
	calls    int
	queries  []map[string]string
}

func (f *fakePostgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if r.URL.Path != "/rest/v1/respostas" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	assert.Equal(f.t, "public", r.Header.Get("Accept-Profile"))
	if f.failures > 0 {
		f.failures--
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	q := map[string]string{}
	for key := range r.URL.Query() {
		q[key] = r.URL.Query().Get(key)
	}
	f.queries = append(f.queries, q)

	var matched []map[string]any
	for _, row := range f.rows {
		ok := true
		for _, column := range []string{"ano", "turno", "turma", "trimestre"} {
			want, has := q[column]
			if !has {
				continue
			}
			if "eq."+records.Stringify(row[column]) != want {
				ok = false
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}
	offset, _ := strconv.Atoi(q["offset"])
	limit, _ := strconv.Atoi(q["limit"])
	if offset > len(matched) {
		offset = len(matched)
	}
	endIdx := len(matched)
	if limit > 0 && offset+limit < endIdx {
		endIdx = offset + limit
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(matched[offset:endIdx])
}

func newTestClient(t *testing.T, fake *fakePostgrest, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client, err := New(Config{URL: srv.URL + "/", Key: "secret", PageSize: pageSize, RetryBackoff: time.Millisecond}, records.DefaultColumnMap())
	require.NoError(t, err)
	return client
}

func sampleRows() []map[string]any {
	return []map[string]any{
		{"ano": "2", "turno": "Manhã", "turma": "A", "trimestre": 1, "aluno": "Carlos", "materia": "Matemática", "descricao": "Bom"},
		{"ano": "2", "turno": "Manhã", "turma": "A", "trimestre": 1, "aluno": "Ana", "materia": "Arte", "descricao": "Ótima"},
		{"ano": "2", "turno": "Manhã", "turma": "A", "trimestre": 2, "aluno": "Ana", "materia": "Arte", "descricao": "Outra"},
		{"ano": "Integral", "turno": "Integral", "turma": "A", "trimestre": 1, "aluno": "Ana", "materia": "Xadrez", "descricao": "Atenta"},
	}
}

func TestFetchAppliesFiltersAndPages(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows()}
	client := newTestClient(t, fake, 1)

	table, err := client.Fetch(context.Background(), records.Filter{Year: "2", Shift: "Manhã", ClassID: "A", Trimester: "1"})
	require.NoError(t, err)
	recs := table.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "Carlos", recs[0].Student)
	assert.Equal(t, "1", recs[0].Trimester)
	assert.Equal(t, "Ana", recs[1].Student)

	require.Len(t, fake.queries, 3)
	assert.Equal(t, "eq.2", fake.queries[0]["ano"])
	assert.Equal(t, "eq.1", fake.queries[0]["trimestre"])
	assert.Equal(t, "*", fake.queries[0]["select"])
	assert.Equal(t, "2", fake.queries[2]["offset"])
}

func TestFetchIgnoresNonNumericTrimester(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows()}
	client := newTestClient(t, fake, 100)
	table, err := client.Fetch(context.Background(), records.Filter{Year: "2", Trimester: "primeiro"})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	_, has := fake.queries[0]["trimestre"]
	assert.False(t, has)
}

func TestFetchEmptyIsNotAnError(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows()}
	client := newTestClient(t, fake, 100)
	table, err := client.Fetch(context.Background(), records.Filter{Year: "9"})
	require.NoError(t, err)
	assert.Zero(t, table.Len())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows(), failures: 2}
	client := newTestClient(t, fake, 100)
	table, err := client.Fetch(context.Background(), records.Filter{Year: "Integral"})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 3, fake.calls)
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows(), failures: 10}
	client := newTestClient(t, fake, 100)
	_, err := client.Fetch(context.Background(), records.Filter{})
	var status *statusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusBadGateway, status.status)
	assert.Equal(t, 3, fake.calls)
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows()}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	client, err := New(Config{URL: srv.URL, Key: "wrong"}, records.DefaultColumnMap())
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), records.Filter{})
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestPing(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows()}
	client := newTestClient(t, fake, 100)
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "1", fake.queries[0]["limit"])
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{URL: "http://localhost"}, records.DefaultColumnMap())
	require.ErrorIs(t, err, records.ErrSourceUnavailable)
}

func TestLoadConfigFromEnvAndFile(t *testing.T) {
	path := t.TempDir() + "/supabase.json"
	writeJSON(t, path, map[string]any{"url": "https://file.supabase.co", "table": "avaliacoes", "page_size": 50})
	t.Setenv("SUPABASE_CONFIG_FILE", path)
	t.Setenv("SUPABASE_URL", "https://env.supabase.co/")
	t.Setenv("SUPABASE_KEY", "k")
	t.Setenv("SUPABASE_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://env.supabase.co", cfg.URL)
	assert.Equal(t, "avaliacoes", cfg.Table)
	assert.Equal(t, "public", cfg.Schema)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.True(t, cfg.Configured())
}

func TestLoadConfigRejectsBadPageSize(t *testing.T) {
	t.Setenv("SUPABASE_PAGE_SIZE", "many")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestFetchStopsAtLimit(t *testing.T) {
	fake := &fakePostgrest{t: t, rows: sampleRows()}
	client := newTestClient(t, fake, 1)

	table, err := client.Fetch(context.Background(), records.Filter{Year: "2", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Len(t, fake.queries, 2)

	fake.queries = nil
	client = newTestClient(t, fake, 1000)
	table, err = client.Fetch(context.Background(), records.Filter{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	require.Len(t, fake.queries, 1)
	assert.Equal(t, "3", fake.queries[0]["limit"])
}
