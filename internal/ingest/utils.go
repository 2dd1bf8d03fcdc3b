package ingest

import (
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
)

// AllowedExt checks if a file extension is in the accepted image set.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// SanitizeFilename reduces an upload name to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return constants.DefaultImageFilename
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return constants.DefaultImageFilename
	}
	return out
}

// DecodeImagePayload decodes standard base64, optionally wrapped in a data URL.
func DecodeImagePayload(s string) ([]byte, error) {
	data := s
	if strings.HasPrefix(s, "data:") {
		_, after, ok := strings.Cut(s, ",")
		if !ok {
			return nil, common.NewAppError("INVALID_DATA_URL", "Invalid data URL", common.ErrInvalidInput)
		}
		data = after
	}
	out, err := base64.StdEncoding.Strict().DecodeString(data)
	if err != nil {
		return nil, common.NewAppError("INVALID_BASE64", "Invalid base64 image", common.ErrInvalidInput)
	}
	return out, nil
}
