// File path: internal/supabase/client.go
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/common/telemetry"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

// Client reads evaluation rows from a Supabase table through its PostgREST
// endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	columns    records.ColumnMap
	cfg        Config
}

func NewFromEnv() (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, records.DefaultColumnMap())
}

func New(cfg Config, columns records.ColumnMap) (*Client, error) {
	cfg.applyDefaults()
	if !cfg.Configured() {
		return nil, fmt.Errorf("supabase: url and key are required: %w", records.ErrSourceUnavailable)
	}
	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdleConns,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}
	common.Logger().Infow("supabase: client configured", "table", cfg.Table, "schema", cfg.Schema, "timeout", cfg.Timeout)
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:    cfg.URL + "/rest/v1/" + url.PathEscape(cfg.Table),
		columns:    columns,
		cfg:        cfg,
	}, nil
}

func (c *Client) Name() string { return "supabase" }

// Fetch pages through every row matching filter, stopping at filter.Limit
// when set. A trimester that is not an integer is not sent to the server.
func (c *Client) Fetch(ctx context.Context, filter records.Filter) (records.Table, error) {
	ctx, end := telemetry.StartSpan(ctx, "supabase.fetch")
	start := time.Now()
	table := records.Table{Columns: c.columns}
	base := c.filterQuery(filter)
	for offset := 0; ; offset += c.cfg.PageSize {
		size := c.cfg.PageSize
		if filter.Limit > 0 {
			remaining := filter.Limit - len(table.Rows)
			if remaining <= 0 {
				break
			}
			if remaining < size {
				size = remaining
			}
		}
		query := cloneValues(base)
		query.Set("limit", strconv.Itoa(size))
		query.Set("offset", strconv.Itoa(offset))
		var page []records.Row
		if err := c.get(ctx, query, &page); err != nil {
			telemetry.RecordFetch(c.Name(), 0, time.Since(start), err)
			end("error", err)
			return records.Table{}, err
		}
		table.Rows = append(table.Rows, page...)
		if len(page) < size {
			break
		}
	}
	telemetry.RecordFetch(c.Name(), table.Len(), time.Since(start), nil)
	end("rows", table.Len())
	return table, nil
}

// Ping selects a single row to prove the table is reachable.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("select", c.columns.Student)
	query.Set("limit", "1")
	var rows []records.Row
	return c.get(ctx, query, &rows)
}

func (c *Client) filterQuery(filter records.Filter) url.Values {
	query := url.Values{}
	query.Set("select", "*")
	add := func(column, value string) {
		if column == "" || value == "" {
			return
		}
		query.Set(column, "eq."+value)
	}
	add(c.columns.Year, filter.Year)
	add(c.columns.Shift, filter.Shift)
	add(c.columns.ClassID, filter.ClassID)
	if n, ok := filter.TrimesterInt(); ok {
		add(c.columns.Trimester, strconv.Itoa(n))
	}
	return query
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.status, e.body)
}

func (c *Client) get(ctx context.Context, query url.Values, out interface{}) error {
	logger := common.Logger()
	var err error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		err = c.doRequest(ctx, query, out)
		if err == nil || !retryable(err) {
			return err
		}
		logger.Warnw("supabase: request failed", "attempt", attempt+1, "error", err)
		if attempt == c.cfg.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.cfg.RetryBackoff):
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.status >= http.StatusInternalServerError || status.status == http.StatusTooManyRequests
	}
	var syntax *json.SyntaxError
	return !errors.As(err, &syntax)
}

func (c *Client) doRequest(ctx context.Context, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.cfg.Key)
	req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Profile", c.cfg.Schema)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}

var (
	_ records.Source = (*Client)(nil)
	_ records.Pinger = (*Client)(nil)
)
