// Package extract turns raw route-sheet OCR text into structured fields.
//
// Every detector is a pure step returning a partial field set. Steps are
// merged in a fixed order and the first value found for a field wins.
package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/lantern/internal/entity"
)

var reStreet = regexp.MustCompile(`(?i)\b\d{1,5}\s+.+\b(rd|road|st|street|ave|avenue|blvd|boulevard|dr|drive|ln|lane|ct|court)\b\.?,?`)

type step func(lines []string) entity.ExtractedFields

var steps = []step{
	addressBlock,
	labeledFields,
	labeledCityPostal,
	serviceDays,
	times,
	saltInfo,
	siteNameFallback,
}

// Fields extracts route-sheet fields from OCR text. It never fails: fields
// that cannot be located are left nil.
func Fields(text string) entity.ExtractedFields {
	lines := splitLines(text)
	var out entity.ExtractedFields
	for _, s := range steps {
		merge(&out, s(lines))
	}
	return out
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// merge fills nil fields of dst from src.
func merge(dst *entity.ExtractedFields, src entity.ExtractedFields) {
	fill := func(d **string, s *string) {
		if *d == nil && s != nil {
			*d = s
		}
	}
	fill(&dst.Route, src.Route)
	fill(&dst.SiteName, src.SiteName)
	fill(&dst.Address, src.Address)
	fill(&dst.City, src.City)
	fill(&dst.PostalCode, src.PostalCode)
	fill(&dst.ServiceDays, src.ServiceDays)
	fill(&dst.TimeOpen, src.TimeOpen)
	fill(&dst.TimeClosed, src.TimeClosed)
	fill(&dst.Notes, src.Notes)
	fill(&dst.SaltProduct, src.SaltProduct)
	fill(&dst.SaltAmount, src.SaltAmount)
	fill(&dst.SaltUnit, src.SaltUnit)
	if dst.GPSLatitude == nil {
		dst.GPSLatitude = src.GPSLatitude
	}
	if dst.GPSLongitude == nil {
		dst.GPSLongitude = src.GPSLongitude
	}
}

// labeledValue reads the inline value after a heading or spills over into the following lines.
func labeledValue(lines []string, name string) *string {
	i, inline, ok := findLabel(lines, labelByName(name))
	if !ok {
		return nil
	}
	if inline != "" {
		return &inline
	}
	return optional(strings.Join(collectBlock(lines, i+1), " "))
}

func labeledFields(lines []string) entity.ExtractedFields {
	return entity.ExtractedFields{
		Route:    labeledValue(lines, labelRoute),
		SiteName: labeledValue(lines, labelSiteName),
		Notes:    labeledValue(lines, labelNotes),
	}
}

func labeledCityPostal(lines []string) entity.ExtractedFields {
	var f entity.ExtractedFields
	f.City = labeledValue(lines, labelCity)
	if v := labeledValue(lines, labelPostalCode); v != nil {
		f.PostalCode = NormalizePostalCode(*v)
	}
	return f
}

func siteNameFallback(lines []string) entity.ExtractedFields {
	n := min(len(lines), 5)
	for _, line := range lines[:n] {
		if streetLine(line) != "" {
			break
		}
		if len(strings.Fields(line)) >= 2 {
			return entity.ExtractedFields{SiteName: optional(line)}
		}
	}
	return entity.ExtractedFields{}
}

func streetLine(line string) string {
	return strings.TrimSpace(reStreet.FindString(line))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
