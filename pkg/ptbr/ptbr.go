// Package ptbr holds the text and date helpers shared by the Brazilian news adapters.
package ptbr

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrUnknownRelativeTime is returned when a relative phrase carries no recognised unit.
var ErrUnknownRelativeTime = errors.New("unknown relative time phrase")

const (
	// LayoutNumeric matches "25/03/2021 14h30".
	LayoutNumeric = "02/01/2006 15h04"
	// LayoutMonthNormalized matches NormalizeMonth output such as "12 de 3 de 2021 | 14h30".
	LayoutMonthNormalized = "2 de 1 de 2006 | 15h04"
)

var months = []struct {
	name    string
	numeral string
}{
	{"janeiro", "1"},
	{"fevereiro", "2"},
	{"março", "3"},
	{"abril", "4"},
	{"maio", "5"},
	{"junho", "6"},
	{"julho", "7"},
	{"agosto", "8"},
	{"setembro", "9"},
	{"outubro", "10"},
	{"novembro", "11"},
	{"dezembro", "12"},
}

var numberExpr = regexp.MustCompile(`\d+`)

// ExtractBetween returns the first match of the regular expression before(.*)after, so both
// markers are patterns. With includeMarkers the whole match is returned, otherwise only the
// captured text. No match or an invalid pattern yields "".
func ExtractBetween(text, before, after string, includeMarkers bool) string {
	expr, err := regexp.Compile(before + "(.*)" + after)
	if err != nil {
		return ""
	}

	match := expr.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	if includeMarkers {
		return match[0]
	}
	return match[1]
}

// NormalizeMonth lower-cases text and swaps the first Portuguese month name it finds for
// the month number. Later occurrences are left untouched.
func NormalizeMonth(text string) string {
	lowered := strings.ToLower(norm.NFC.String(text))

	first, idx := -1, -1
	for i, m := range months {
		pos := strings.Index(lowered, m.name)
		if pos < 0 && m.name == "março" {
			// some pages drop the cedilla
			pos = strings.Index(lowered, "marco")
		}
		if pos >= 0 && (first < 0 || pos < first) {
			first, idx = pos, i
		}
	}
	if idx < 0 {
		return lowered
	}

	name := months[idx].name
	if !strings.HasPrefix(lowered[first:], name) {
		name = "marco"
	}
	return lowered[:first] + months[idx].numeral + lowered[first+len(name):]
}

// ResolveRelativeTime turns phrases like "3 horas atrás", "há 2 dias" or "Ontem" into an
// absolute time relative to now. Unrecognised phrases return now and ErrUnknownRelativeTime.
func ResolveRelativeTime(phrase string, now time.Time) (time.Time, error) {
	cleaned := strings.ToLower(strings.TrimSpace(norm.NFC.String(phrase)))
	if cleaned == "ontem" {
		return now.AddDate(0, 0, -1), nil
	}

	digits := numberExpr.FindString(cleaned)
	if digits == "" {
		return now, ErrUnknownRelativeTime
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return now, ErrUnknownRelativeTime
	}

	switch {
	case strings.Contains(cleaned, "hora"):
		return now.Add(-time.Duration(n) * time.Hour), nil
	case strings.Contains(cleaned, "minuto"):
		return now.Add(-time.Duration(n) * time.Minute), nil
	case strings.Contains(cleaned, "dia"):
		return now.AddDate(0, 0, -n), nil
	case strings.Contains(cleaned, "semana"):
		return now.AddDate(0, 0, -7*n), nil
	case strings.Contains(cleaned, "mes"), strings.Contains(cleaned, "mês"):
		return now.AddDate(0, 0, -30*n), nil
	case strings.Contains(cleaned, "ano"):
		return now.AddDate(0, 0, -365*n), nil
	}

	return now, ErrUnknownRelativeTime
}

// ParseAbsolute parses text with layout in loc after trimming surrounding whitespace.
func ParseAbsolute(layout, text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(layout, strings.TrimSpace(text), loc)
}

// ParsePortugueseDate handles "12 de março de 2021 | 14h30" style strings.
func ParsePortugueseDate(text string, loc *time.Location) (time.Time, error) {
	return ParseAbsolute(LayoutMonthNormalized, NormalizeMonth(strings.TrimSpace(text)), loc)
}
