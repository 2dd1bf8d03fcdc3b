package extract

import (
	"regexp"
	"strings"
)

// label identifies a field heading on a route sheet.
type label struct {
	name string
	re   *regexp.Regexp
}

const (
	labelRoute       = "route"
	labelSiteName    = "site_name"
	labelAddress     = "address"
	labelCity        = "city"
	labelPostalCode  = "postal_code"
	labelServiceDays = "service_days"
	labelTimeOpen    = "time_open"
	labelTimeClosed  = "time_closed"
	labelNotes       = "notes"
	labelSalt        = "salt"
)

// labels is the ordered stop list consulted by every spillover collection.
var labels = []label{
	{labelRoute, regexp.MustCompile(`(?i)\broute\b[:\s]*`)},
	{labelSiteName, regexp.MustCompile(`(?i)\b(?:slang|site) name\b[:\s]*`)},
	{labelAddress, regexp.MustCompile(`(?i)\baddress\b[:\s]*`)},
	{labelCity, regexp.MustCompile(`(?i)\bcity\b[:\s]*`)},
	{labelPostalCode, regexp.MustCompile(`(?i)\b(?:zip code|zip)\b[:\s]*`)},
	{labelServiceDays, regexp.MustCompile(`(?i)\bservice days\b[:\s]*`)},
	{labelTimeOpen, regexp.MustCompile(`(?i)\btime open\b[:\s]*`)},
	{labelTimeClosed, regexp.MustCompile(`(?i)\btime closed\b[:\s]*`)},
	{labelNotes, regexp.MustCompile(`(?i)\bspecial notes\b[:\s]*`)},
	{labelSalt, regexp.MustCompile(`(?i)\b(?:salt info|sidewalk info)\b[:\s]*`)},
}

func labelByName(name string) label {
	for _, l := range labels {
		if l.name == name {
			return l
		}
	}
	panic("extract: unknown label " + name)
}

// isLabelLine reports whether line carries any known heading.
func isLabelLine(line string) bool {
	for _, l := range labels {
		if l.re.MatchString(line) {
			return true
		}
	}
	return false
}

// findLabel returns the index of the first line carrying l and the text after the heading.
func findLabel(lines []string, l label) (int, string, bool) {
	for i, line := range lines {
		loc := l.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		return i, strings.TrimSpace(line[loc[1]:]), true
	}
	return -1, "", false
}

// collectBlock returns lines from start up to the next label line.
func collectBlock(lines []string, start int) []string {
	var block []string
	for i := start; i < len(lines); i++ {
		if isLabelLine(lines[i]) {
			break
		}
		block = append(block, lines[i])
	}
	return block
}
