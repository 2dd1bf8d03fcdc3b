package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/lantern/internal/entity"
)

var (
	reDays = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?(?:\s*-\s*(mon|tue|wed|thu|fri|sat|sun)[a-z]*)?`)

	reClock      = regexp.MustCompile(`(\d{1,2})\s*[:.\s]\s*(\d{2})\s*([AaPp])\.?\s*([Mm])\.?`)
	reHourOnly   = regexp.MustCompile(`(\d{1,2})\s*([AaPp])\.?\s*[Mm]`)
	timeOCRNoise = strings.NewReplacer("|", " ", "l", "1")
)

func serviceDays(lines []string) entity.ExtractedFields {
	i, inline, ok := findLabel(lines, labelByName(labelServiceDays))
	if !ok {
		return entity.ExtractedFields{}
	}
	if v := parseDays(inline); v != nil {
		return entity.ExtractedFields{ServiceDays: v}
	}
	if i+1 < len(lines) {
		return entity.ExtractedFields{ServiceDays: parseDays(lines[i+1])}
	}
	return entity.ExtractedFields{}
}

func parseDays(s string) *string {
	m := reDays.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := titleDay(m[1])
	if m[2] != "" {
		out += "-" + titleDay(m[2])
	}
	return &out
}

func titleDay(d string) string {
	d = strings.ToLower(d)
	return strings.ToUpper(d[:1]) + d[1:]
}

func times(lines []string) entity.ExtractedFields {
	return entity.ExtractedFields{
		TimeOpen:   labeledTime(lines, labelTimeOpen),
		TimeClosed: labeledTime(lines, labelTimeClosed),
	}
}

func labeledTime(lines []string, name string) *string {
	i, inline, ok := findLabel(lines, labelByName(name))
	if !ok {
		return nil
	}
	if inline != "" {
		return NormalizeTime(inline)
	}
	if i+1 < len(lines) {
		return NormalizeTime(lines[i+1])
	}
	return nil
}

// NormalizeTime cleans OCR noise from a clock reading, returning "7:00AM",
// "7 AM", or the trimmed input unchanged when no clock pattern is present.
// Input holding nothing but bar noise yields nil.
func NormalizeTime(s string) *string {
	cleaned := timeOCRNoise.Replace(s)
	if m := reClock.FindStringSubmatch(cleaned); m != nil {
		out := fmt.Sprintf("%s:%s%s%s", m[1], m[2], strings.ToUpper(m[3]), strings.ToUpper(m[4]))
		return &out
	}
	if m := reHourOnly.FindStringSubmatch(cleaned); m != nil {
		out := fmt.Sprintf("%s %sM", m[1], strings.ToUpper(m[2]))
		return &out
	}
	if strings.TrimSpace(cleaned) == "" {
		return nil
	}
	return optional(s)
}
