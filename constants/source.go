package constants

import (
	"strings"
)

// Source tags where a route sheet came from.
type Source string

const (
	SourceUpload Source = "upload"
	SourceEmail  Source = "email"
	SourceFolder Source = "folder"
	SourceCLI    Source = "cli"
)

var allSources = []Source{
	SourceUpload,
	SourceEmail,
	SourceFolder,
	SourceCLI,
}

// Canonicalize maps loose source labels onto a known Source.
// Unknown labels fall back to SourceUpload with ok=false.
func Canonicalize(input string) (Source, bool) {
	if input == "" {
		return SourceUpload, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Source{
		"web":     SourceUpload,
		"form":    SourceUpload,
		"mail":    SourceEmail,
		"e-mail":  SourceEmail,
		"inbox":   SourceEmail,
		"watch":   SourceFolder,
		"dropbox": SourceFolder,
	}

	if src, ok := synonyms[normalized]; ok {
		return src, true
	}

	for _, src := range allSources {
		if normalized == string(src) {
			return src, true
		}
	}

	return SourceUpload, false
}
