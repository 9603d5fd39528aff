// File path: internal/sqlite/types.go
package sqlite

import "time"

// RecordRow is one mirrored evaluation row.
type RecordRow struct {
	ID          int64     `db:"id"`
	Year        string    `db:"ano"`
	Shift       string    `db:"turno"`
	ClassID     string    `db:"turma"`
	Trimester   string    `db:"trimestre"`
	Student     string    `db:"aluno"`
	Subject     string    `db:"materia"`
	Description string    `db:"descricao"`
	Inclusion   string    `db:"inclusao"`
	Profile     string    `db:"perfilturma"`
	PAPI        string    `db:"papi"`
	Source      string    `db:"source"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Export records one generated ata file.
type Export struct {
	ID        string    `db:"id" json:"id"`
	Number    string    `db:"numero_ata" json:"numero_ata"`
	FileName  string    `db:"file_name" json:"file_name"`
	Year      string    `db:"ano" json:"ano"`
	Shift     string    `db:"turno" json:"turno"`
	ClassID   string    `db:"turma" json:"turma"`
	Trimester string    `db:"trimestre" json:"trimestre"`
	President string    `db:"presidente" json:"presidente"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditRow represents an audit entry.
type AuditRow struct {
	ID        int64     `db:"id"`
	Action    string    `db:"action"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}
