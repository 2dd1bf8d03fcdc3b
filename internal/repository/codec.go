package repository

import (
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/lantern/internal/entity"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func encodeMetadata(md map[string]any) (string, error) {
	if md == nil {
		return "{}", nil
	}
	b, err := json.Marshal(md)
	return string(b), err
}

func decodeMetadata(s string) (map[string]any, error) {
	md := map[string]any{}
	if s == "" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(s), &md); err != nil {
		return nil, err
	}
	return md, nil
}

func encodeExtraction(res *entity.ExtractionResult) (*string, error) {
	if res == nil {
		return nil, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodeExtraction(s *string) (*entity.ExtractionResult, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	var res entity.ExtractionResult
	if err := json.Unmarshal([]byte(*s), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
