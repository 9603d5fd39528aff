// File path: internal/ata/compose.go
package ata

import (
	"fmt"
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/lexical"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

// ObjectivesSource renders the planned objectives for a year and trimester.
type ObjectivesSource interface {
	Text(year int, trimester string) string
}

// Institution holds the names printed in the document header and prose.
type Institution struct {
	Prefeitura string `json:"prefeitura"`
	Secretaria string `json:"secretaria"`
	Escola     string `json:"escola"`
}

func DefaultInstitution() Institution {
	return Institution{
		Prefeitura: "Prefeitura Municipal de Curitiba",
		Secretaria: "Secretaria Municipal da Educação",
		Escola:     "Escola Municipal Mirazinha Braga",
	}
}

// MeetingContext is the metadata of one council meeting.
type MeetingContext struct {
	Number       string
	Date         string
	Start        string
	End          string
	President    string
	Participants []string
	Filter       records.Filter
}

// Composer turns evaluation records into the minutes text. It keeps no state
// between calls.
type Composer struct {
	Institution     Institution
	IntegralClasses map[int]string
	Objectives      ObjectivesSource
}

func NewComposer(objectives ObjectivesSource) *Composer {
	return &Composer{
		Institution:     DefaultInstitution(),
		IntegralClasses: DefaultIntegralClasses,
		Objectives:      objectives,
	}
}

const (
	openingTemplate = "Ata nº %s. %s, às %s, a equipe da %s realizou o Conselho de Classe — %s do %s/turma %s, %s, com a participação de %s. " +
		"O conselho de classe foi presidido por %s, que deu início aos trabalhos informando aos participantes " +
		"que neste momento serão contempladas as reflexões sobre o entendimento dos processos vivenciados pelos estudantes " +
		"em relação à escolarização e à sua avaliação, tendo como documentos norteadores de análise e validação, " +
		"o Currículo do Ensino Fundamental – Diálogos com a BNCC (2020) e o planejamento do professor, " +
		"o qual compreendeu os seguintes objetivos: "
	transitionTemplate = "Em seguida, deu-se início às considerações sobre cada estudante do %s/turma %s, %s, referentes a %s. "
	closingTemplate    = "Os encaminhamentos necessários serão retomados nos momentos de pós-conselho. " +
		"Nada mais havendo a tratar, eu %s, na qualidade de presidente do conselho, " +
		"encerro a presente ata às %s, que vai assinada por mim e pelos demais presentes."
)

// phrases holds the normalized pieces shared by the text and the title.
type phrases struct {
	integral  bool
	yearNum   int
	yearLabel string
	class     string
	shift     string
	trimester string
}

func (c *Composer) phrases(meeting MeetingContext) (phrases, error) {
	p := phrases{
		class:     strings.TrimSpace(meeting.Filter.ClassID),
		shift:     lexical.Capitalize(strings.TrimSpace(meeting.Filter.Shift)),
		trimester: lexical.TrimesterLabel(strings.TrimSpace(meeting.Filter.Trimester)),
	}
	if lexical.IsIntegralLabel(meeting.Filter.Year) {
		p.integral = true
		p.yearLabel = "Integral"
		return p, nil
	}
	n, err := lexical.ExtractYearNumber(meeting.Filter.Year)
	if err != nil {
		return phrases{}, err
	}
	p.yearNum = n
	p.yearLabel = lexical.OrdinalMasculine(n) + " ano"
	return p, nil
}

// ComposeText assembles the minutes body from already decoded records. home
// holds the class's own records; broad holds the same trimester's records of
// every class and is searched for Integral program entries.
func (c *Composer) ComposeText(meeting MeetingContext, home, broad []records.Record) (string, error) {
	p, err := c.phrases(meeting)
	if err != nil {
		return "", err
	}
	dateLong, err := lexical.DateToLongWords(meeting.Date)
	if err != nil {
		return "", err
	}
	start, err := lexical.TimeToWords(meeting.Start)
	if err != nil {
		return "", err
	}
	end, err := lexical.TimeToWords(meeting.End)
	if err != nil {
		return "", err
	}
	president := strings.TrimSpace(meeting.President)

	opening := fmt.Sprintf(openingTemplate,
		strings.TrimSpace(meeting.Number), dateLong, start, c.schoolName(),
		p.trimester, p.yearLabel, p.class, p.shift,
		lexical.JoinNatural(meeting.Participants), president)

	var objectives string
	var integral []records.Record
	if !p.integral {
		if c.Objectives != nil {
			objectives = lexical.EnsureTerminalPunctuation(c.Objectives.Text(p.yearNum, meeting.Filter.Trimester))
		}
		integral = FilterIntegral(broad, p.yearNum, meeting.Filter.Trimester, c.IntegralClasses)
	}

	transition := fmt.Sprintf(transitionTemplate, p.yearLabel, p.class, p.shift, p.trimester)

	blocks := StudentBlocks(home, integral)
	rendered := make([]string, 0, len(blocks))
	for _, block := range blocks {
		rendered = append(rendered, block.String())
	}

	closing := fmt.Sprintf(closingTemplate, president, end)

	text := strings.Join([]string{opening, objectives, transition, strings.Join(rendered, " "), closing}, " ")
	return lexical.CollapseSpaces(text), nil
}

// ComposeTable decodes both tables with their own column maps and composes
// the text.
func (c *Composer) ComposeTable(meeting MeetingContext, home, broad records.Table) (string, error) {
	return c.ComposeText(meeting, home.Records(), broad.Records())
}

func (c *Composer) schoolName() string {
	if name := strings.TrimSpace(c.Institution.Escola); name != "" {
		return name
	}
	return DefaultInstitution().Escola
}
