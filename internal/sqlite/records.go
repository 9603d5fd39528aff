// File path: internal/sqlite/records.go
package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nicodishanthj/ata_conselho/internal/common/telemetry"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialised")
	}
	return s.db.PingContext(ctx)
}

// Import upserts recs keyed by year, shift, class, trimester, student and
// subject, and returns the number of rows written.
func (s *Store) Import(ctx context.Context, source string, recs []records.Record) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlite store not initialised")
	}
	written := 0
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `INSERT INTO respostas(ano, turno, turma, trimestre, aluno, materia, descricao, inclusao, perfilturma, papi, source)
                VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT(ano, turno, turma, trimestre, aluno, materia) DO UPDATE SET
                        descricao = excluded.descricao,
                        inclusao = excluded.inclusao,
                        perfilturma = excluded.perfilturma,
                        papi = excluded.papi,
                        source = excluded.source,
                        updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			return fmt.Errorf("prepare import: %w", err)
		}
		defer stmt.Close()
		for _, rec := range recs {
			if strings.TrimSpace(rec.Student) == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				strings.TrimSpace(rec.Year), strings.TrimSpace(rec.Shift), strings.TrimSpace(rec.ClassID),
				normalizeTrimester(rec.Trimester), strings.TrimSpace(rec.Student), strings.TrimSpace(rec.Subject),
				strings.TrimSpace(rec.Description), rec.Inclusion, rec.Profile, rec.PAPI, source); err != nil {
				return fmt.Errorf("import %s/%s: %w", rec.Student, rec.Subject, err)
			}
			written++
		}
		return recordAudit(ctx, tx, "import", fmt.Sprintf("%d rows from %s", written, source))
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Fetch returns the mirrored rows matching filter, in insertion order, capped
// at filter.Limit when set.
func (s *Store) Fetch(ctx context.Context, filter records.Filter) (records.Table, error) {
	if s == nil || s.db == nil {
		return records.Table{}, fmt.Errorf("sqlite store not initialised")
	}
	start := time.Now()
	var (
		clauses []string
		args    []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		clauses = append(clauses, column+" = ?")
		args = append(args, value)
	}
	add("ano", filter.Year)
	add("turno", filter.Shift)
	add("turma", filter.ClassID)
	if n, ok := filter.TrimesterInt(); ok {
		add("trimestre", strconv.Itoa(n))
	}
	query := `SELECT * FROM respostas`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows := []RecordRow{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		telemetry.RecordFetch(s.Name(), 0, time.Since(start), err)
		return records.Table{}, fmt.Errorf("select respostas: %w", err)
	}
	table := records.Table{Columns: records.DefaultColumnMap(), Rows: make([]records.Row, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, row.toRow())
	}
	telemetry.RecordFetch(s.Name(), table.Len(), time.Since(start), nil)
	return table, nil
}

// CountRecords returns the number of mirrored rows.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlite store not initialised")
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM respostas`); err != nil {
		return 0, fmt.Errorf("count respostas: %w", err)
	}
	return n, nil
}

func (r RecordRow) toRow() records.Row {
	return records.Row{
		"ano":         r.Year,
		"turno":       r.Shift,
		"turma":       r.ClassID,
		"trimestre":   r.Trimester,
		"aluno":       r.Student,
		"materia":     r.Subject,
		"descricao":   r.Description,
		"inclusao":    r.Inclusion,
		"perfilturma": r.Profile,
		"papi":        r.PAPI,
	}
}

func normalizeTrimester(value string) string {
	trimmed := strings.TrimSpace(value)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return strconv.Itoa(n)
	}
	return trimmed
}

var (
	_ records.Source = (*Store)(nil)
	_ records.Pinger = (*Store)(nil)
)
