// File path: internal/workflow/request.go
package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nicodishanthj/ata_conselho/internal/ata"
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/roster"
)

// Field is a scalar request field that accepts either a JSON string or a JSON
// number ("trimestre": 1 and "trimestre": "1" are the same).
type Field string

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = Field(n.String())
	return nil
}

func (f Field) String() string { return strings.TrimSpace(string(f)) }

// Participants is the attendee list. JSON accepts an array or a single
// newline-separated string.
type Participants []string

func (p *Participants) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*p = roster.Split(text)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("participantes: %w", err)
	}
	*p = cleanList(list)
	return nil
}

// Request carries the class filters and the meeting metadata of one ata.
type Request struct {
	Year         Field        `json:"ano" validate:"required"`
	Shift        Field        `json:"turno" validate:"required"`
	ClassID      Field        `json:"turma" validate:"required"`
	Trimester    Field        `json:"trimestre" validate:"required"`
	Number       Field        `json:"numero_ata" validate:"required"`
	Date         Field        `json:"data_reuniao" validate:"required,datetime=2006-01-02"`
	Start        Field        `json:"horario_inicio" validate:"required,datetime=15:04"`
	End          Field        `json:"horario_fim" validate:"required,datetime=15:04"`
	President    Field        `json:"presidente" validate:"required"`
	Participants Participants `json:"participantes" validate:"required,min=1"`
	EditedText   string       `json:"texto_editado,omitempty"`
}

// ValidationError lists the request fields that are missing or malformed,
// by their JSON names.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "Campos obrigatórios ausentes: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "Campos com formato inválido: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return "requisição inválida"
	}
	return strings.Join(parts, "; ")
}

// Fields returns every offending field.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Invalid))
	out = append(out, e.Missing...)
	return append(out, e.Invalid...)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func normalizeRequest(req Request) (Request, error) {
	normalized := req
	for _, field := range []*Field{
		&normalized.Year, &normalized.Shift, &normalized.ClassID, &normalized.Trimester,
		&normalized.Number, &normalized.Date, &normalized.Start, &normalized.End, &normalized.President,
	} {
		*field = Field(field.String())
	}
	normalized.Participants = cleanList(req.Participants)
	normalized.EditedText = strings.TrimSpace(req.EditedText)

	if err := requestValidator().Struct(normalized); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Request{}, err
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required", "min":
				out.Missing = append(out.Missing, fe.Field())
			default:
				out.Invalid = append(out.Invalid, fe.Field())
			}
		}
		return Request{}, out
	}
	return normalized, nil
}

// Filter returns the class filter of the request.
func (r Request) Filter() records.Filter {
	return records.Filter{
		Year:      r.Year.String(),
		Shift:     r.Shift.String(),
		ClassID:   r.ClassID.String(),
		Trimester: r.Trimester.String(),
	}
}

// Meeting returns the composer input of the request.
func (r Request) Meeting() ata.MeetingContext {
	return ata.MeetingContext{
		Number:       r.Number.String(),
		Date:         r.Date.String(),
		Start:        r.Start.String(),
		End:          r.End.String(),
		President:    r.President.String(),
		Participants: append([]string(nil), r.Participants...),
		Filter:       r.Filter(),
	}
}

func cleanList(values []string) []string {
	var out []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
