// File path: internal/ata/correlate.go
package ata

import (
	"strconv"
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/lexical"
	"github.com/nicodishanthj/ata_conselho/internal/records"
)

// DefaultIntegralClasses maps a year number to the class letter its students
// use in the full-time (Integral) program.
var DefaultIntegralClasses = map[int]string{2: "A", 3: "B", 4: "C"}

// StudentBlock is the narrative fragment for one student.
type StudentBlock struct {
	Name      string
	Sentences []string
}

func (b StudentBlock) String() string {
	return b.Name + ": " + strings.Join(b.Sentences, " ")
}

// FilterIntegral selects the Integral program records of the same trimester
// for the class letter mapped to year. Years without a mapping yield nil.
func FilterIntegral(broad []records.Record, year int, trimester string, classes map[int]string) []records.Record {
	if classes == nil {
		classes = DefaultIntegralClasses
	}
	letter, ok := classes[year]
	if !ok || strings.TrimSpace(letter) == "" {
		return nil
	}
	var out []records.Record
	for _, rec := range broad {
		if !sameTrimester(rec.Trimester, trimester) {
			continue
		}
		if !lexical.IsIntegralLabel(rec.Year) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rec.ClassID), strings.TrimSpace(letter)) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// StudentBlocks groups home records by student, in order of first
// appearance, and appends each student's Integral sentences after the home
// ones. Students without any sentence are left out.
func StudentBlocks(home, integral []records.Record) []StudentBlock {
	type group struct {
		name      string
		sentences []string
	}
	var order []string
	groups := make(map[string]*group)
	for _, rec := range home {
		name := strings.TrimSpace(rec.Student)
		if name == "" {
			continue
		}
		key := studentKey(name)
		g, ok := groups[key]
		if !ok {
			g = &group{name: name}
			groups[key] = g
			order = append(order, key)
		}
		if sentence, ok := sentenceFor(rec); ok {
			g.sentences = append(g.sentences, sentence)
		}
	}

	extra := make(map[string][]string)
	for _, rec := range integral {
		key := studentKey(rec.Student)
		if _, ok := groups[key]; !ok {
			continue
		}
		if sentence, ok := sentenceFor(rec); ok {
			extra[key] = append(extra[key], sentence)
		}
	}

	blocks := make([]StudentBlock, 0, len(order))
	for _, key := range order {
		g := groups[key]
		sentences := append(g.sentences, extra[key]...)
		if len(sentences) == 0 {
			continue
		}
		blocks = append(blocks, StudentBlock{Name: g.name, Sentences: sentences})
	}
	return blocks
}

func sentenceFor(rec records.Record) (string, bool) {
	subject := strings.TrimSpace(rec.Subject)
	description := strings.TrimSpace(rec.Description)
	if subject == "" || description == "" {
		return "", false
	}
	return lexical.EnsureTerminalPunctuation(subject + ": " + description), true
}

func studentKey(name string) string {
	return strings.ToLower(lexical.CollapseSpaces(name))
}

func sameTrimester(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai == bi
	}
	return strings.EqualFold(a, b)
}
