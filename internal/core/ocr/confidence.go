package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reSheetLabel = regexp.MustCompile(`(?i)\b(route|slang name|address|service days|time open|time closed|special notes|salt info|sidewalk info)\b`)
	reStreetish  = regexp.MustCompile(`(?i)\b\d{1,5}\s+\w+.*\b(rd|road|st|street|ave|avenue|blvd|dr|drive|ln|lane|ct|court)\b`)
	reClockish   = regexp.MustCompile(`(?i)\b\d{1,2}\s*[:.|]?\s*\d{0,2}\s*[ap]\.?m\b`)
	reStateZip   = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}\b`)
)

// heuristicConfidence scores how much text looks like a route sheet.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	labels := len(reSheetLabel.FindAllString(txt, -1))
	switch {
	case labels >= 4:
		score += 0.3
	case labels > 0:
		score += 0.15
	}
	if reStreetish.MatchString(txt) {
		score += 0.15
	}
	if reClockish.MatchString(txt) {
		score += 0.1
	}
	if reStateZip.MatchString(txt) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// meanTSVConfidence averages the word confidence column of tesseract TSV output into 0..1.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

// blend weights engine confidence over the text heuristic when both exist.
func blend(engine, heuristic float32) float32 {
	conf := heuristic
	if engine > 0 {
		conf = 0.7*engine + 0.3*heuristic
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
