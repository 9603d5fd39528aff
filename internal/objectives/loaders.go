// File path: internal/objectives/loaders.go
package objectives

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadJSON walks the token stream instead of unmarshalling into maps so the
// subject order of the file survives.
func loadJSON(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeJSON(f)
}

func decodeJSON(r io.Reader) (Map, error) {
	dec := json.NewDecoder(r)
	out := make(Map)
	if err := expectDelim(dec, '{'); err != nil {
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		return nil, err
	}
	for dec.More() {
		year, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("objectives: year %s: %w", year, err)
		}
		for dec.More() {
			trimester, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			if err := expectDelim(dec, '{'); err != nil {
				return nil, fmt.Errorf("objectives: year %s trimester %s: %w", year, trimester, err)
			}
			var entries []Entry
			for dec.More() {
				subject, err := readKey(dec)
				if err != nil {
					return nil, err
				}
				var text string
				if err := dec.Decode(&text); err != nil {
					return nil, fmt.Errorf("objectives: %s/%s/%s: %w", year, trimester, subject, err)
				}
				entries = append(entries, Entry{Subject: subject, Text: text})
			}
			if err := expectDelim(dec, '}'); err != nil {
				return nil, err
			}
			out.set(strings.TrimSpace(year), strings.TrimSpace(trimester), entries)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}
	return out, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("objectives: expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("objectives: expected object key, got %v", tok)
	}
	return key, nil
}

func loadYAML(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("objectives: parse yaml: %w", err)
	}
	out := make(Map)
	if len(root.Content) == 0 {
		return out, nil
	}
	years := root.Content[0]
	if years.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("objectives: yaml root must be a mapping")
	}
	for i := 0; i+1 < len(years.Content); i += 2 {
		year, trimesters := years.Content[i].Value, years.Content[i+1]
		if trimesters.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("objectives: year %s must be a mapping", year)
		}
		for j := 0; j+1 < len(trimesters.Content); j += 2 {
			trimester, subjects := trimesters.Content[j].Value, trimesters.Content[j+1]
			if subjects.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("objectives: year %s trimester %s must be a mapping", year, trimester)
			}
			var entries []Entry
			for k := 0; k+1 < len(subjects.Content); k += 2 {
				entries = append(entries, Entry{
					Subject: subjects.Content[k].Value,
					Text:    subjects.Content[k+1].Value,
				})
			}
			out.set(strings.TrimSpace(year), strings.TrimSpace(trimester), entries)
		}
	}
	return out, nil
}

var (
	headerYear      = regexp.MustCompile(`(?i)ano\s*=\s*(\d+)`)
	headerTrimester = regexp.MustCompile(`(?i)trimestre\s*=\s*(\d+)`)
)

// loadText reads the plain format:
//
//	[ano=2, trimestre=1]
//	MATEMÁTICA: texto
func loadText(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(Map)
	var (
		year, trimester string
		entries         []Entry
	)
	flush := func() {
		if year != "" && trimester != "" {
			out.set(year, trimester, entries)
		}
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			year, trimester, entries = "", "", nil
			if m := headerYear.FindStringSubmatch(line); m != nil {
				year = m[1]
			}
			if m := headerTrimester.FindStringSubmatch(line); m != nil {
				trimester = m[1]
			}
			continue
		}
		if year == "" || trimester == "" {
			continue
		}
		subject, text, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		entries = append(entries, Entry{Subject: strings.ToUpper(strings.TrimSpace(subject)), Text: strings.TrimSpace(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}
