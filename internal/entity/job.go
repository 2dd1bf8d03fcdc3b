package entity

import (
	"time"

	"github.com/joseph-ayodele/lantern/constants"
)

// JobRecord is one route sheet moving through the extraction lifecycle.
// ID, ReceivedAt, Source, Metadata and ImagePath never change after creation.
type JobRecord struct {
	ID         string              `json:"id"`
	ReceivedAt time.Time           `json:"received_at"`
	Source     constants.Source    `json:"source"`
	Metadata   map[string]any      `json:"metadata"`
	ImagePath  string              `json:"image_path"`
	Status     constants.JobStatus `json:"status"`
	Error      *string             `json:"error,omitempty"`
	Extraction *ExtractionResult   `json:"extraction,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// ErrorMessage returns the recorded error or "".
func (j *JobRecord) ErrorMessage() string {
	if j == nil || j.Error == nil {
		return ""
	}
	return *j.Error
}
