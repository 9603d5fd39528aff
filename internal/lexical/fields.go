// File path: internal/lexical/fields.go
package lexical

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var digitRun = regexp.MustCompile(`\d+`)

// ExtractYearNumber returns the first run of digits in label, falling back to
// parsing the whole label. Labels such as "Integral" must be handled by the
// caller (see IsIntegralLabel) before reaching this function.
func ExtractYearNumber(label string) (int, error) {
	if match := digitRun.FindString(label); match != "" {
		n, err := strconv.Atoi(match)
		if err != nil {
			return 0, parseError("year", label, err)
		}
		return n, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil {
		return 0, parseError("year", label, errors.New("no digits"))
	}
	return n, nil
}

func IsIntegralLabel(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), "integral")
}

// TrimesterLabel renders "{n}º trimestre" from the first digit run of value.
// Values without digits come back unchanged.
func TrimesterLabel(value string) string {
	if n, ok := TrimesterNumber(value); ok {
		return OrdinalMasculine(n) + " trimestre"
	}
	return value
}

func TrimesterNumber(value string) (int, bool) {
	match := digitRun.FindString(value)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Capitalize upper-cases the first rune and lower-cases the rest ("manhã" -> "Manhã").
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
