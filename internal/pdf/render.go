// File path: internal/pdf/render.go
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/nicodishanthj/ata_conselho/internal/ata"
)

// Layout controls page geometry and type sizes, in millimetres and points.
type Layout struct {
	TopMargin    float64
	BottomMargin float64
	SideMargin   float64
	HeaderSize   float64
	TitleSize    float64
	BodySize     float64
	LineHeight   float64
}

// DefaultLayout is A4 with half-inch top and bottom margins.
func DefaultLayout() Layout {
	return Layout{
		TopMargin:    12.7,
		BottomMargin: 12.7,
		SideMargin:   25.4,
		HeaderSize:   11,
		TitleSize:    12,
		BodySize:     10,
		LineHeight:   4.9,
	}
}

type Renderer struct {
	layout Layout
}

func NewRenderer(layout Layout) *Renderer {
	if layout.BodySize <= 0 {
		layout = DefaultLayout()
	}
	return &Renderer{layout: layout}
}

// Render writes doc as a PDF to w.
func (r *Renderer) Render(doc ata.Document, w io.Writer) error {
	l := r.layout
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(l.SideMargin, l.TopMargin, l.SideMargin)
	pdf.SetAutoPageBreak(true, l.BottomMargin+6)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("ata_conselho", true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-(l.BottomMargin + 2))
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 4, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", l.HeaderSize)
	for _, line := range doc.Header {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pdf.CellFormat(0, l.HeaderSize*0.45, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", l.TitleSize)
	pdf.MultiCell(0, l.TitleSize*0.5, tr(doc.Title), "", "C", false)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", l.BodySize)
	for _, paragraph := range strings.Split(doc.Body, "\n") {
		pdf.MultiCell(0, l.LineHeight, tr(strings.TrimSpace(paragraph)), "", "J", false)
	}
	pdf.Ln(l.LineHeight * 2)

	pdf.SetFont("Helvetica", "B", l.BodySize)
	pdf.CellFormat(0, l.LineHeight, tr(ata.SignaturesHeading), "", 1, "L", false, 0, "")
	pdf.Ln(l.LineHeight)

	pdf.SetFont("Helvetica", "", l.BodySize)
	for _, sig := range doc.Signatures {
		pdf.CellFormat(0, l.LineHeight, ata.SignatureRule, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, l.LineHeight, tr(sig.Label()), "", 1, "L", false, 0, "")
		pdf.Ln(l.LineHeight)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf: layout: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: output: %w", err)
	}
	return nil
}

// Bytes renders doc into memory.
func (r *Renderer) Bytes(doc ata.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
