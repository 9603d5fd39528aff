// File path: internal/api/request.go
package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/roster"
	"github.com/nicodishanthj/ata_conselho/internal/workflow"
)

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "requisição inválida: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// decodeAtaRequest reads an ata request from a JSON body or from form fields.
func decodeAtaRequest(r *http.Request) (workflow.Request, error) {
	var req workflow.Request
	if isForm(r) {
		if err := parseForm(r); err != nil {
			return req, &decodeError{err: err}
		}
		form := r.Form
		req = workflow.Request{
			Year:         workflow.Field(form.Get("ano")),
			Shift:        workflow.Field(form.Get("turno")),
			ClassID:      workflow.Field(form.Get("turma")),
			Trimester:    workflow.Field(form.Get("trimestre")),
			Number:       workflow.Field(form.Get("numero_ata")),
			Date:         workflow.Field(form.Get("data_reuniao")),
			Start:        workflow.Field(form.Get("horario_inicio")),
			End:          workflow.Field(form.Get("horario_fim")),
			President:    workflow.Field(form.Get("presidente")),
			Participants: formParticipants(form["participantes"]),
			EditedText:   form.Get("texto_editado"),
		}
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, &decodeError{err: err}
	}
	return req, nil
}

// decodeEmail reads the "email" field of a JSON body or a form.
func decodeEmail(r *http.Request) (string, error) {
	if isForm(r) {
		if err := parseForm(r); err != nil {
			return "", &decodeError{err: err}
		}
		return strings.TrimSpace(r.Form.Get("email")), nil
	}
	var body struct {
		Email string `json:"email"`
	}
	if r.ContentLength == 0 {
		return "", nil
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", &decodeError{err: err}
	}
	return strings.TrimSpace(body.Email), nil
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded"
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return fmt.Errorf("parse multipart form: %w", err)
		}
		return nil
	}
	return r.ParseForm()
}

// formParticipants accepts repeated fields or one newline-separated field.
func formParticipants(values []string) workflow.Participants {
	var out workflow.Participants
	for _, value := range values {
		out = append(out, roster.Split(value)...)
	}
	return out
}
