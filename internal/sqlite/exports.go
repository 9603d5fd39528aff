// File path: internal/sqlite/exports.go
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RecordExport stores exp and an audit entry in one transaction.
func (s *Store) RecordExport(ctx context.Context, exp Export) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialised")
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO exports(id, numero_ata, file_name, ano, turno, turma, trimestre, presidente, size_bytes)
                VALUES(:id, :numero_ata, :file_name, :ano, :turno, :turma, :trimestre, :presidente, :size_bytes)`, exp); err != nil {
			return fmt.Errorf("insert export: %w", err)
		}
		return recordAudit(ctx, tx, "export", fmt.Sprintf("ata %s -> %s", exp.Number, exp.FileName))
	})
}

// Exports lists the most recent exports first.
func (s *Store) Exports(ctx context.Context, limit int) ([]Export, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	out := []Export{}
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM exports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("select exports: %w", err)
	}
	return out, nil
}

// RecordEvent appends a free-form audit entry.
func (s *Store) RecordEvent(ctx context.Context, action, detail string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialised")
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return recordAudit(ctx, tx, action, detail)
	})
}

// Audit returns audit entries for action, newest first.
func (s *Store) Audit(ctx context.Context, action string) ([]AuditRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	out := []AuditRow{}
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM audit WHERE action = ? ORDER BY id DESC`, action); err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	return out, nil
}
