package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/lantern/internal/entity"
)

var (
	reSaltProduct  = regexp.MustCompile(`(?i)\b(salt|eco2|reliable blue)\b\s*(\d+(?:\.\d+)?)?\s*(bags?|scoops?)?`)
	reSaltQuantity = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(bags?|scoops?)?\b`)
)

// saltBackfillLines bounds how far below the salt heading a bare quantity is looked for.
const saltBackfillLines = 3

func saltInfo(lines []string) entity.ExtractedFields {
	var f entity.ExtractedFields
	saltLabel := labelByName(labelSalt)

	idx, _, hasLine := findLabel(lines, saltLabel)
	candidate := strings.Join(lines, " ")
	if hasLine {
		candidate = saltLabel.re.ReplaceAllString(lines[idx], " ")
	}

	if m := reSaltProduct.FindStringSubmatch(candidate); m != nil {
		f.SaltProduct = optional(m[1])
		f.SaltAmount = optional(m[2])
		f.SaltUnit = optional(m[3])
	}
	if !hasLine || (f.SaltAmount != nil && f.SaltUnit != nil) {
		return f
	}

	end := min(len(lines), idx+1+saltBackfillLines)
	for _, line := range lines[idx+1 : end] {
		m := reSaltQuantity.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if f.SaltAmount == nil {
			f.SaltAmount = optional(m[1])
		}
		if f.SaltUnit == nil {
			f.SaltUnit = optional(m[2])
		}
		if f.SaltAmount != nil && f.SaltUnit != nil {
			break
		}
	}
	return f
}
