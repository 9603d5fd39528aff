// File path: internal/ata/document.go
package ata

import (
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/records"
)

const (
	SignaturesHeading = "ASSINATURAS:"
	SignatureRule     = "_________________________________"
	PresidentRole     = "Presidente(a) do Conselho"
)

// Signature is one signature slot below the body.
type Signature struct {
	Name string
	Role string
}

func (s Signature) Label() string {
	if s.Role == "" {
		return s.Name
	}
	return s.Name + " — " + s.Role
}

// Document is the page-independent content of an ata.
type Document struct {
	Header     [3]string
	Title      string
	Body       string
	Signatures []Signature
}

// RenderDocument builds the printable document. A non-blank override replaces
// the composed body verbatim.
func (c *Composer) RenderDocument(meeting MeetingContext, override string, home, broad []records.Record) (Document, error) {
	p, err := c.phrases(meeting)
	if err != nil {
		return Document{}, err
	}
	body := strings.TrimSpace(override)
	if body == "" {
		body, err = c.ComposeText(meeting, home, broad)
		if err != nil {
			return Document{}, err
		}
	}

	inst := c.Institution
	defaults := DefaultInstitution()
	doc := Document{
		Header: [3]string{
			strings.ToUpper(firstNonEmpty(inst.Prefeitura, defaults.Prefeitura)),
			strings.ToUpper(firstNonEmpty(inst.Secretaria, defaults.Secretaria)),
			strings.ToUpper(firstNonEmpty(inst.Escola, defaults.Escola)),
		},
		Title: "Conselho de Classe do " + p.yearLabel + " " + p.class + " - " + p.shift + " - " + p.trimester,
		Body:  body,
	}
	doc.Signatures = append(doc.Signatures, Signature{Name: strings.TrimSpace(meeting.President), Role: PresidentRole})
	for _, name := range meeting.Participants {
		if name = strings.TrimSpace(name); name != "" {
			doc.Signatures = append(doc.Signatures, Signature{Name: name})
		}
	}
	return doc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
