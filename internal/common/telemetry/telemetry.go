// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/ata_conselho/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	fetchTotal     *expvar.Map
	fetchRows      *expvar.Map
	fetchLatencyMS *expvar.Map
	fetchErrors    *expvar.Map

	composeTotal  *expvar.Int
	composeBlocks *expvar.Int

	exportTotal  *expvar.Map
	cacheReloads *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		fetchTotal = expvar.NewMap("ata_fetch_total")
		fetchRows = expvar.NewMap("ata_fetch_rows_total")
		fetchLatencyMS = expvar.NewMap("ata_fetch_latency_ms")
		fetchErrors = expvar.NewMap("ata_fetch_errors_total")

		composeTotal = expvar.NewInt("ata_compose_total")
		composeBlocks = expvar.NewInt("ata_compose_student_blocks_total")

		exportTotal = expvar.NewMap("ata_export_total")
		cacheReloads = expvar.NewMap("ata_cache_reloads_total")
	})
}

func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debugw("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debugw("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordFetch counts one adapter round trip.
func RecordFetch(source string, rows int, duration time.Duration, err error) {
	ensureInit()
	key := normalizeKey(source, "unknown")
	fetchTotal.Add(key, 1)
	if err != nil {
		fetchErrors.Add(key, 1)
		return
	}
	if rows > 0 {
		fetchRows.Add(key, int64(rows))
	}
	if duration > 0 {
		fetchLatencyMS.Add(key, duration.Milliseconds())
	}
}

func RecordCompose(blocks int) {
	ensureInit()
	composeTotal.Add(1)
	if blocks > 0 {
		composeBlocks.Add(int64(blocks))
	}
}

// RecordExport counts export outcomes such as "pdf", "queued", "zip" or "mail_failed".
func RecordExport(kind string) {
	ensureInit()
	exportTotal.Add(normalizeKey(kind, "generic"), 1)
}

func RecordCacheReload(name string) {
	ensureInit()
	cacheReloads.Add(normalizeKey(name, "file"), 1)
}

func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func normalizeKey(value, fallback string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return fallback
	}
	return key
}
