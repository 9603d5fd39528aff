// File path: internal/ata/ata_test.go
package ata

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/ata_conselho/internal/lexical"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

type fakeObjectives map[string]string

func (f fakeObjectives) Text(year int, trimester string) string {
	return f[lexical.OrdinalMasculine(year)+"/"+trimester]
}

func meeting() MeetingContext {
	return MeetingContext{
		Number:       "5",
		Date:         "2025-08-21",
		Start:        "14:00",
		End:          "16:00",
		President:    "Maria",
		Participants: []string{"João", "Ana"},
		Filter:       records.Filter{Year: "2", Shift: "manhã", ClassID: "A", Trimester: "1"},
	}
}

func TestComposeTextEndToEnd(t *testing.T) {
	c := NewComposer(nil)
	home := []records.Record{{Student: "Carlos", Subject: "Matemática", Description: "Bom progresso"}}
	text, err := c.ComposeText(meeting(), home, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Ata nº 5. Aos vinte e um de agosto de dois mil e vinte e cinco, às catorze horas, "))
	assert.Contains(t, text, "Conselho de Classe — 1º trimestre do 2º ano/turma A, Manhã, com a participação de João e Ana.")
	assert.Contains(t, text, "Em seguida, deu-se início às considerações sobre cada estudante do 2º ano/turma A, Manhã, referentes a 1º trimestre.")
	assert.Contains(t, text, "Carlos: Matemática: Bom progresso.")
	assert.True(t, strings.HasSuffix(text, "encerro a presente ata às dezesseis horas, que vai assinada por mim e pelos demais presentes."))
	assert.NotContains(t, text, "  ")
}

func TestComposeTextIsDeterministic(t *testing.T) {
	c := NewComposer(fakeObjectives{"2º/1": "Português: ler"})
	home := []records.Record{
		{Student: "Bia", Subject: "Arte", Description: "Criativa"},
		{Student: "Carlos", Subject: "Matemática", Description: "Bom"},
	}
	first, err := c.ComposeText(meeting(), home, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.ComposeText(meeting(), home, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Contains(t, first, "os seguintes objetivos: Português: ler. Em seguida")
}

func TestComposeTextMergesIntegralRecords(t *testing.T) {
	c := NewComposer(nil)
	home := []records.Record{{Student: "Carlos Souza", Subject: "Matemática", Description: "Bom progresso"}}
	broad := []records.Record{
		{Year: "Integral", ClassID: "a", Trimester: "1", Student: "carlos  souza", Subject: "Xadrez", Description: "Concentrado"},
		{Year: "Integral", ClassID: "B", Trimester: "1", Student: "Carlos Souza", Subject: "Robótica", Description: "Outra turma"},
	}
	text, err := c.ComposeText(meeting(), home, broad)
	require.NoError(t, err)
	assert.Contains(t, text, "Carlos Souza: Matemática: Bom progresso. Xadrez: Concentrado.")
	assert.NotContains(t, text, "Robótica")
}

func TestComposeTextPropagatesParseErrors(t *testing.T) {
	c := NewComposer(nil)
	m := meeting()
	m.Start = "quatorze"
	_, err := c.ComposeText(m, nil, nil)
	var perr *lexical.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "time", perr.Kind)

	m = meeting()
	m.Filter.Year = "primeiro"
	_, err = c.ComposeText(m, nil, nil)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "year", perr.Kind)
}

func TestComposeTextIntegralYear(t *testing.T) {
	c := NewComposer(fakeObjectives{"0º/1": "nunca"})
	m := meeting()
	m.Filter.Year = "Integral"
	home := []records.Record{{Student: "Lia", Subject: "Xadrez", Description: "Atenta"}}
	text, err := c.ComposeText(m, home, home)
	require.NoError(t, err)
	assert.Contains(t, text, "do Integral/turma A, Manhã")
	assert.Contains(t, text, "Lia: Xadrez: Atenta.")
	assert.NotContains(t, text, "nunca")
	assert.Equal(t, 1, strings.Count(text, "Atenta"))
}

func TestComposeTableDecodesColumns(t *testing.T) {
	c := NewComposer(nil)
	cols := records.DefaultColumnMap()
	cols.Description = []string{"descricao", "parecer"}
	home := records.Table{Columns: cols, Rows: []records.Row{
		{"aluno": "Carlos", "materia": "Matemática", "descricao": nil, "parecer": "Bom progresso"},
		{"aluno": "Duda", "materia": "Arte"},
	}}
	text, err := c.ComposeTable(meeting(), home, records.Table{})
	require.NoError(t, err)
	assert.Contains(t, text, "Carlos: Matemática: Bom progresso.")
	assert.NotContains(t, text, "Duda")
}

func TestRenderDocument(t *testing.T) {
	c := NewComposer(nil)
	doc, err := c.RenderDocument(meeting(), "", []records.Record{{Student: "Carlos", Subject: "Matemática", Description: "Bom"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, [3]string{"PREFEITURA MUNICIPAL DE CURITIBA", "SECRETARIA MUNICIPAL DA EDUCAÇÃO", "ESCOLA MUNICIPAL MIRAZINHA BRAGA"}, doc.Header)
	assert.Equal(t, "Conselho de Classe do 2º ano A - Manhã - 1º trimestre", doc.Title)
	assert.Contains(t, doc.Body, "Carlos: Matemática: Bom.")
	require.Len(t, doc.Signatures, 3)
	assert.Equal(t, "Maria — Presidente(a) do Conselho", doc.Signatures[0].Label())
	assert.Equal(t, "João", doc.Signatures[1].Label())
	assert.Equal(t, "Ana", doc.Signatures[2].Label())
}

func TestRenderDocumentUsesOverride(t *testing.T) {
	c := NewComposer(nil)
	m := meeting()
	m.Date = "not-a-date"
	doc, err := c.RenderDocument(m, "  Texto editado.\nSegunda linha.  ", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Texto editado.\nSegunda linha.", doc.Body)
}
