package constants

// JobStatus is the canonical status of a job record.
type JobStatus string

// Stable values (store these exact strings).
const (
	JobStatusQueued     JobStatus = "queued"     // waiting for (re)processing
	JobStatusProcessing JobStatus = "processing" // extraction attempt in flight
	JobStatusDone       JobStatus = "done"       // fields extracted
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)

// Valid reports whether s is one of the known job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusDone, JobStatusFailed:
		return true
	}
	return false
}

// OCRStatus qualifies a non-clean extraction outcome.
type OCRStatus string

const (
	OCRStatusOK            OCRStatus = "ok"
	OCRStatusLowConfidence OCRStatus = "low_confidence" // ran, but the text looks weak
	OCRStatusUnavailable   OCRStatus = "unavailable"    // engine or runtime missing
	OCRStatusError         OCRStatus = "error"          // engine ran and failed
)

// DeliveryStatus is the outcome reported by the delivery sink.
type DeliveryStatus string

const (
	DeliveryDelivered     DeliveryStatus = "delivered"
	DeliveryFailed        DeliveryStatus = "failed"
	DeliveryNotConfigured DeliveryStatus = "not_configured"
	DeliverySkipped       DeliveryStatus = "skipped"
)

// Error messages persisted on job records.
const (
	ErrMsgMissingImagePath = "missing image_path"
	ErrMsgStaleProcessing  = "stale processing recovered"
)
