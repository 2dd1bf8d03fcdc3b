package delivery

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const payloadSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["status", "job_id", "fields"],
  "properties": {
    "status": {"const": "done"},
    "job_id": {"type": "string", "minLength": 1},
    "raw_text": {"type": "string"},
    "ocr_status": {"enum": ["ok", "low_confidence"]},
    "fields": {
      "type": "object",
      "required": [
        "route", "site_name", "address", "city", "postal_code",
        "gps_latitude", "gps_longitude", "service_days", "time_open",
        "time_closed", "notes", "salt_product", "salt_amount", "salt_unit"
      ],
      "additionalProperties": false,
      "properties": {
        "route": {"type": ["string", "null"]},
        "site_name": {"type": ["string", "null"]},
        "address": {"type": ["string", "null"]},
        "city": {"type": ["string", "null"]},
        "postal_code": {"type": ["string", "null"], "pattern": "^[0-9]{1,5}$"},
        "gps_latitude": {"type": ["number", "null"], "minimum": -90, "maximum": 90},
        "gps_longitude": {"type": ["number", "null"], "minimum": -180, "maximum": 180},
        "service_days": {"type": ["string", "null"]},
        "time_open": {"type": ["string", "null"]},
        "time_closed": {"type": ["string", "null"]},
        "notes": {"type": ["string", "null"]},
        "salt_product": {"type": ["string", "null"]},
        "salt_amount": {"type": ["string", "null"]},
        "salt_unit": {"type": ["string", "null"]}
      }
    }
  }
}`

var (
	payloadSchemaOnce sync.Once
	payloadSchema     *jsonschema.Schema
	payloadSchemaErr  error
)

func compiledPayloadSchema() (*jsonschema.Schema, error) {
	payloadSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("payload.json", strings.NewReader(payloadSchemaJSON)); err != nil {
			payloadSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		payloadSchema, payloadSchemaErr = compiler.Compile("payload.json")
	})
	return payloadSchema, payloadSchemaErr
}

// ValidatePayload checks an encoded extraction result against the delivery schema.
func ValidatePayload(data []byte) error {
	schema, err := compiledPayloadSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
