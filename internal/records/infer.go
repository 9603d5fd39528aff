// File path: internal/records/infer.go
package records

import (
	"fmt"
	"strings"
)

// DescriptionCandidates lists, in priority order, the spreadsheet headers that
// may carry a student's description.
var DescriptionCandidates = []string{
	"Descricao", "Descrição", "Descricao.1", "Descrição.1",
	"Comentario", "Comentário", "Observação", "Parecer",
	"Avaliação", "Desenvolvimento", "Acompanhamento", "Inclusao", "Inclusão",
	"PAPI", "PerfilTurma", "descricao",
}

// MissingColumnError reports a required header absent from a sheet.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("records: column %q not found", e.Column)
}

// InferColumnMap resolves a ColumnMap from spreadsheet headers, matching
// names case-insensitively.
func InferColumnMap(headers []string) (ColumnMap, error) {
	index := make(map[string]string, len(headers))
	for _, header := range headers {
		trimmed := strings.TrimSpace(header)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := index[key]; !exists {
			index[key] = header
		}
	}
	pick := func(name string) (string, error) {
		if column, ok := index[strings.ToLower(name)]; ok {
			return column, nil
		}
		return "", &MissingColumnError{Column: name}
	}

	var m ColumnMap
	required := []struct {
		name   string
		target *string
	}{
		{"Aluno", &m.Student},
		{"Materia", &m.Subject},
		{"Turma", &m.ClassID},
		{"Ano", &m.Year},
		{"Turno", &m.Shift},
		{"Trimestre", &m.Trimester},
	}
	for _, field := range required {
		column, err := pick(field.name)
		if err != nil {
			return ColumnMap{}, err
		}
		*field.target = column
	}

	seen := make(map[string]struct{})
	for _, candidate := range DescriptionCandidates {
		column, ok := index[strings.ToLower(candidate)]
		if !ok {
			continue
		}
		if _, dup := seen[column]; dup {
			continue
		}
		seen[column] = struct{}{}
		m.Description = append(m.Description, column)
	}
	m.Inclusion, _ = pick("Inclusao")
	if m.Inclusion == "" {
		m.Inclusion, _ = pick("Inclusão")
	}
	m.Profile, _ = pick("PerfilTurma")
	m.PAPI, _ = pick("PAPI")
	return m, nil
}
