// File path: internal/records/record.go
package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one evaluation entry decoded from a tabular source. Empty strings
// mean the value was absent in the source row.
type Record struct {
	Year        string `json:"ano"`
	Shift       string `json:"turno"`
	ClassID     string `json:"turma"`
	Trimester   string `json:"trimestre"`
	Student     string `json:"aluno"`
	Subject     string `json:"materia"`
	Description string `json:"descricao,omitempty"`
	Inclusion   string `json:"inclusao,omitempty"`
	Profile     string `json:"perfilturma,omitempty"`
	PAPI        string `json:"papi,omitempty"`
}

// Row is a raw result-set row keyed by source column name.
type Row map[string]any

// Table is the result set handed over by a Source. Columns describes how its
// rows map onto Record fields.
type Table struct {
	Columns ColumnMap
	Rows    []Row
}

func (t Table) Len() int { return len(t.Rows) }

// Records decodes every row with the table's column map.
func (t Table) Records() []Record {
	if len(t.Rows) == 0 {
		return nil
	}
	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, t.Columns.Decode(row))
	}
	return out
}

// ColumnMap resolves logical fields to source column names. Description is an
// ordered candidate list; the first non-empty value wins.
type ColumnMap struct {
	Year        string   `json:"ano" yaml:"ano"`
	Shift       string   `json:"turno" yaml:"turno"`
	ClassID     string   `json:"turma" yaml:"turma"`
	Trimester   string   `json:"trimestre" yaml:"trimestre"`
	Student     string   `json:"aluno" yaml:"aluno"`
	Subject     string   `json:"materia" yaml:"materia"`
	Description []string `json:"descricao" yaml:"descricao"`
	Inclusion   string   `json:"inclusao,omitempty" yaml:"inclusao,omitempty"`
	Profile     string   `json:"perfil_turma,omitempty" yaml:"perfil_turma,omitempty"`
	PAPI        string   `json:"papi,omitempty" yaml:"papi,omitempty"`
}

// DefaultColumnMap matches the column names of the "respostas" table.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		Year:        "ano",
		Shift:       "turno",
		ClassID:     "turma",
		Trimester:   "trimestre",
		Student:     "aluno",
		Subject:     "materia",
		Description: []string{"descricao"},
		Inclusion:   "inclusao",
		Profile:     "perfilturma",
		PAPI:        "papi",
	}
}

// Decode builds a Record from row. Missing columns decode to "".
func (m ColumnMap) Decode(row Row) Record {
	rec := Record{
		Year:      lookup(row, m.Year),
		Shift:     lookup(row, m.Shift),
		ClassID:   lookup(row, m.ClassID),
		Trimester: lookup(row, m.Trimester),
		Student:   lookup(row, m.Student),
		Subject:   lookup(row, m.Subject),
		Inclusion: lookup(row, m.Inclusion),
		Profile:   lookup(row, m.Profile),
		PAPI:      lookup(row, m.PAPI),
	}
	for _, column := range m.Description {
		if value := strings.TrimSpace(lookup(row, column)); value != "" {
			rec.Description = value
			break
		}
	}
	return rec
}

// Column returns the source column for a filterable logical field.
func (m ColumnMap) Column(field string) string {
	switch field {
	case FieldYear:
		return m.Year
	case FieldShift:
		return m.Shift
	case FieldClassID:
		return m.ClassID
	case FieldTrimester:
		return m.Trimester
	case FieldStudent:
		return m.Student
	case FieldSubject:
		return m.Subject
	}
	return ""
}

const (
	FieldYear      = "ano"
	FieldShift     = "turno"
	FieldClassID   = "turma"
	FieldTrimester = "trimestre"
	FieldStudent   = "aluno"
	FieldSubject   = "materia"
)

func lookup(row Row, column string) string {
	if column == "" || row == nil {
		return ""
	}
	if value, ok := row[column]; ok {
		return Stringify(value)
	}
	// Keys differing only in case resolve to the lexically smallest one.
	match, found := "", false
	for key := range row {
		if strings.EqualFold(key, column) && (!found || key < match) {
			match, found = key, true
		}
	}
	if !found {
		return ""
	}
	return Stringify(row[match])
}

// Stringify converts a loosely typed cell into its display string. nil and
// NaN become "".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		f := float64(v)
		if math.IsNaN(f) {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
