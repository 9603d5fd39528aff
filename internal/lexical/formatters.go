// File path: internal/lexical/formatters.go
package lexical

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	units    = [...]string{"zero", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove"}
	teens    = [...]string{"dez", "onze", "doze", "treze", "catorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove"}
	tens     = [...]string{"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa"}
	hundreds = [...]string{"", "cem", "duzentos", "trezentos", "quatrocentos", "quinhentos", "seiscentos", "setecentos", "oitocentos", "novecentos"}

	months = [...]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}
)

const maxWordsNumber = 9999

// NumberToWords spells 0..9999 as Portuguese cardinal words. Anything outside
// that range is returned as its decimal numeral.
func NumberToWords(n int) string {
	if n < 0 || n > maxWordsNumber {
		return strconv.Itoa(n)
	}
	switch {
	case n < 10:
		return units[n]
	case n < 20:
		return teens[n-10]
	case n < 100:
		word := tens[n/10]
		if rest := n % 10; rest != 0 {
			word += " e " + units[rest]
		}
		return word
	case n < 1000:
		hundred, rest := n/100, n%100
		if rest == 0 {
			return hundreds[hundred]
		}
		if hundred == 1 {
			return "cento e " + NumberToWords(rest)
		}
		return hundreds[hundred] + " e " + NumberToWords(rest)
	default:
		thousand, rest := n/1000, n%1000
		word := "mil"
		if thousand > 1 {
			word = units[thousand] + " mil"
		}
		if rest != 0 {
			word += " e " + NumberToWords(rest)
		}
		return word
	}
}

func OrdinalMasculine(n int) string {
	return strconv.Itoa(n) + "º"
}

// TimeToWords renders a 24-hour "HH:MM" (seconds tolerated) clock value.
// The hour numeral is not gender-inflected: "01:00" reads "um hora".
func TimeToWords(hhmm string) (string, error) {
	value := strings.TrimSpace(hhmm)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", parseError("time", hhmm, errors.New("expected HH:MM"))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", parseError("time", hhmm, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", parseError("time", hhmm, err)
	}
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil {
			return "", parseError("time", hhmm, err)
		}
		if second < 0 || second > 59 {
			return "", parseError("time", hhmm, errors.New("out of range"))
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", parseError("time", hhmm, errors.New("out of range"))
	}

	phrase := NumberToWords(hour) + " " + plural(hour, "hora", "horas")
	if minute != 0 {
		phrase += " e " + NumberToWords(minute) + " " + plural(minute, "minuto", "minutos")
	}
	return phrase, nil
}

// DateToLongWords renders an ISO date as "Aos {dia} de {mês} de {ano}".
func DateToLongWords(date string) (string, error) {
	value := strings.TrimSpace(date)
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return "", parseError("date", date, err)
	}
	return "Aos " + NumberToWords(parsed.Day()) +
		" de " + months[parsed.Month()-1] +
		" de " + NumberToWords(parsed.Year()), nil
}

// JoinNatural joins trimmed, non-empty items as "A, B e C".
func JoinNatural(items []string) string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	switch len(cleaned) {
	case 0:
		return ""
	case 1:
		return cleaned[0]
	default:
		last := len(cleaned) - 1
		return strings.Join(cleaned[:last], ", ") + " e " + cleaned[last]
	}
}

func EnsureTerminalPunctuation(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return trimmed
	}
	return trimmed + "."
}

// CollapseSpaces replaces every whitespace run with one space and trims.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
