package common_test

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/lantern/internal/common"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	unsetEnv(t, "DATA_DIR", "STORE_BACKEND", "DB_URL", "GRPC_ADDR", "RETRY_SCHEDULE",
		"REQUEUE_POLICY", "OCR_MIN_CONFIDENCE", "WORKERS", "WATCH_DIR", "HTTP_ADDR")

	cfg := common.LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "data/lantern.db", cfg.Store.DSN)
	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "@every 5m", cfg.Retry.Schedule)
	assert.Equal(t, time.Minute, cfg.Retry.MinAge)
	assert.Equal(t, "record", cfg.Retry.RequeuePolicy)
	assert.InDelta(t, 0.45, cfg.OCR.MinConfidence, 0.0001)
	assert.Equal(t, 4, cfg.Worker.Workers)
	assert.Empty(t, cfg.WatchDir)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("GRPC_ADDR", "")
	t.Setenv("RETRY_SCHEDULE", "")
	t.Setenv("PROCESS_TIMEOUT", "45s")
	t.Setenv("OCR_TSV_CONFIDENCE", "true")
	t.Setenv("WORKERS", "not-a-number")

	cfg := common.LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis://cache:6379/2", cfg.Store.RedisURL)
	assert.Empty(t, cfg.Server.GRPCAddr)
	assert.Empty(t, cfg.Retry.Schedule)
	assert.Equal(t, 45*time.Second, cfg.Worker.ProcessTimeout)
	assert.True(t, cfg.OCR.EnableTSVConfidence)
	assert.Equal(t, 4, cfg.Worker.Workers)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*common.Config)
	}{
		{"unknown backend", func(c *common.Config) { c.Store.Backend = "cassandra" }},
		{"sqlite without dsn", func(c *common.Config) { c.Store.Backend = "sqlite"; c.Store.DSN = "" }},
		{"mongo without database", func(c *common.Config) { c.Store.Backend = "mongo"; c.Store.MongoDatabase = "" }},
		{"empty http addr", func(c *common.Config) { c.Server.HTTPAddr = "" }},
		{"unknown requeue policy", func(c *common.Config) { c.Retry.RequeuePolicy = "clear" }},
		{"zero delivery attempts", func(c *common.Config) { c.Delivery.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", "file")
			t.Setenv("REQUEUE_POLICY", "record")
			t.Setenv("HTTP_ADDR", ":8000")
			t.Setenv("DELIVERY_MAX_ATTEMPTS", "3")
			cfg := common.LoadConfig()
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestToGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("job: %w", common.ErrNotFound), codes.NotFound},
		{common.NewAppError("EMPTY_UPLOAD", "Empty upload", common.ErrInvalidInput), codes.InvalidArgument},
		{common.ErrUnavailable, codes.Unavailable},
		{fmt.Errorf("job: %w", common.ErrConflict), codes.AlreadyExists},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(common.ToGRPCError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, common.ToGRPCError(nil))
}

func TestMessage(t *testing.T) {
	appErr := common.NewAppError("INVALID_BASE64", "Invalid base64 image", common.ErrInvalidInput)
	assert.Equal(t, "Invalid base64 image", common.Message(common.WrapError(appErr, "decode")))
	assert.Equal(t, "plain", common.Message(errors.New("plain")))
	assert.Empty(t, common.Message(nil))
}

func TestValidator(t *testing.T) {
	idRule := common.Matches(regexp.MustCompile(`^[a-z0-9-]+$`), "must be lower-case letters, digits or '-'")

	v := common.NewValidator().
		Field("id", "job-1", common.Required, idRule).
		Field("source", "email", common.OneOf("upload", "email"))
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.AsAppError())
	assert.NoError(t, common.ValidateAndReturnError(v))

	v = common.NewValidator().
		Field("id", " ", common.Required).
		Field("source", "pigeon", common.OneOf("upload", "email"))
	require.True(t, v.HasErrors())
	assert.Contains(t, v.ErrorMessage(), "id is required")
	assert.Contains(t, v.ErrorMessage(), "source must be one of upload, email")
	assert.ErrorIs(t, v.AsAppError(), common.ErrInvalidInput)
	assert.Equal(t, codes.InvalidArgument, status.Code(common.ValidateAndReturnError(v)))
}
