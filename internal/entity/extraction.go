package entity

import "github.com/joseph-ayodele/lantern/constants"

// ExtractedFields is the structured view of one route sheet.
// Every field is independently optional; nil means "not found".
type ExtractedFields struct {
	Route        *string  `json:"route"`
	SiteName     *string  `json:"site_name"`
	Address      *string  `json:"address"`
	City         *string  `json:"city"`
	PostalCode   *string  `json:"postal_code"`
	GPSLatitude  *float64 `json:"gps_latitude"`
	GPSLongitude *float64 `json:"gps_longitude"`
	ServiceDays  *string  `json:"service_days"`
	TimeOpen     *string  `json:"time_open"`
	TimeClosed   *string  `json:"time_closed"`
	Notes        *string  `json:"notes"`
	SaltProduct  *string  `json:"salt_product"`
	SaltAmount   *string  `json:"salt_amount"`
	SaltUnit     *string  `json:"salt_unit"`
}

// ExtractionResult is the payload produced by one processing attempt.
type ExtractionResult struct {
	Status    constants.JobStatus `json:"status"`
	JobID     string              `json:"job_id"`
	Fields    ExtractedFields     `json:"fields"`
	RawText   *string             `json:"raw_text,omitempty"`
	Error     string              `json:"error,omitempty"`
	Message   string              `json:"message,omitempty"`
	OCRStatus constants.OCRStatus `json:"ocr_status,omitempty"`
}

// DeliveryOutcome is what the delivery sink reports back to the caller.
type DeliveryOutcome struct {
	Status       constants.DeliveryStatus `json:"status"`
	StatusCode   int                      `json:"status_code,omitempty"`
	ResponseText string                   `json:"response_text,omitempty"`
	AckID        string                   `json:"ack_id,omitempty"`
	Attempts     int                      `json:"attempts,omitempty"`
	Error        string                   `json:"error,omitempty"`
}
