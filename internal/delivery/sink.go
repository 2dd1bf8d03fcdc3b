// Package delivery forwards finished extractions to the downstream inbox.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oliveagle/jsonpath"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/entity"
)

type Config struct {
	InboxURL    string
	Timeout     time.Duration
	MaxAttempts int
	AckPath     string // JSONPath into the partner response, e.g. "$.id"
	Headers     map[string]string
}

// Sink posts done extraction results to the configured inbox URL.
type Sink struct {
	cfg    Config
	client *http.Client
	retry  RetryStrategy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

type Option func(*Sink)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

func WithRetryStrategy(rs RetryStrategy) Option {
	return func(s *Sink) { s.retry = rs }
}

func NewSink(cfg Config, logger *slog.Logger, opts ...Option) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &Sink{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry:  DefaultRetryStrategy(cfg.MaxAttempts),
		logger: logger,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Configured reports whether an inbox URL is set.
func (s *Sink) Configured() bool { return s.cfg.InboxURL != "" }

// Deliver sends res downstream. Only done results are sent; anything else is
// reported as skipped. The outcome is always returned, never an error.
func (s *Sink) Deliver(ctx context.Context, res entity.ExtractionResult) entity.DeliveryOutcome {
	if !s.Configured() {
		return entity.DeliveryOutcome{Status: constants.DeliveryNotConfigured}
	}
	if res.Status != constants.JobStatusDone {
		return entity.DeliveryOutcome{Status: constants.DeliverySkipped}
	}
	log := s.logger.With("job_id", res.JobID)

	body, err := json.Marshal(res)
	if err != nil {
		return entity.DeliveryOutcome{Status: constants.DeliveryFailed, Error: err.Error()}
	}
	if err := ValidatePayload(body); err != nil {
		log.Error("delivery payload rejected by schema", "error", err)
		return entity.DeliveryOutcome{Status: constants.DeliveryFailed, Error: err.Error()}
	}

	out := entity.DeliveryOutcome{Status: constants.DeliveryFailed}
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		out.Attempts = attempt
		raw, code, err := SendJSON(ctx, s.client, s.cfg.InboxURL, json.RawMessage(body), s.cfg.Headers, log)
		out.StatusCode = code
		out.ResponseText = string(raw)
		out.Error = ""
		if err != nil {
			out.Error = err.Error()
		}

		if err == nil && code >= 200 && code < 300 {
			out.Status = constants.DeliveryDelivered
			out.AckID = s.ackID(raw)
			log.Info("delivered extraction", "attempt", attempt, "status_code", code, "ack_id", out.AckID)
			return out
		}
		if !s.retry.ShouldRetry(attempt, code, err) {
			break
		}
		delay := s.retry.CalculateDelay(attempt)
		log.Warn("delivery failed, retrying", "attempt", attempt, "status_code", code, "next_retry_ms", delay.Milliseconds(), "error", out.Error)
		if err := s.sleep(ctx, delay); err != nil {
			out.Error = err.Error()
			return out
		}
	}
	if out.Error == "" {
		out.Error = fmt.Sprintf("non-2xx status: %d", out.StatusCode)
	}
	log.Error("delivery failed", "attempts", out.Attempts, "status_code", out.StatusCode, "error", out.Error)
	return out
}

// ackID pulls the partner's acknowledgement id out of a JSON response, if any.
func (s *Sink) ackID(raw []byte) string {
	if s.cfg.AckPath == "" || len(raw) == 0 {
		return ""
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	pattern, err := jsonpath.Compile(s.cfg.AckPath)
	if err != nil {
		s.logger.Warn("invalid ack path", "path", s.cfg.AckPath, "error", err)
		return ""
	}
	v, err := pattern.Lookup(doc)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
