package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/lantern/internal/entity"
)

var (
	reStateZip = regexp.MustCompile(`([A-Z]{2})\s+(\d{5})`)
	reNonDigit = regexp.MustCompile(`\D`)
)

// addressBlock locates address, city and postal code. A labeled block takes
// precedence over a bare street line; only the first match is used.
func addressBlock(lines []string) entity.ExtractedFields {
	if i, inline, ok := findLabel(lines, labelByName(labelAddress)); ok {
		block := collectBlock(lines, i+1)
		if inline != "" {
			block = append([]string{inline}, block...)
		}
		return fromBlock(block)
	}
	for i, line := range lines {
		street := streetLine(line)
		if street == "" {
			continue
		}
		return fromBlock(append([]string{street}, collectBlock(lines, i+1)...))
	}
	return entity.ExtractedFields{}
}

// fromBlock maps [address, city, "ST 12345"] onto fields.
func fromBlock(block []string) entity.ExtractedFields {
	var f entity.ExtractedFields
	if len(block) > 0 {
		f.Address = optional(block[0])
	}
	if len(block) > 1 {
		f.City = optional(block[1])
	}
	if len(block) > 2 {
		if m := reStateZip.FindStringSubmatch(block[2]); m != nil {
			f.PostalCode = NormalizePostalCode(m[1] + " " + m[2])
		}
	}
	return f
}

// NormalizePostalCode keeps the trailing five digits of s, or nil when s has none.
func NormalizePostalCode(s string) *string {
	digits := reNonDigit.ReplaceAllString(s, "")
	if len(digits) > 5 {
		digits = digits[len(digits)-5:]
	}
	return optional(strings.TrimSpace(digits))
}
