package common

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(newTestViper())

	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.Database.DialTimeout)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "go", cfg.OCR.NativeEngine)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, 2, cfg.OCR.Workers)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 2025, cfg.Pipeline.DefaultYear)
	assert.Equal(t, 60*time.Second, cfg.Fetch.Timeout)
}

func TestValidateRequiresStore(t *testing.T) {
	cfg := LoadConfig(newTestViper())
	err := cfg.Validate()
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeConfig, appErr.Code)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "database.dsn")

	cfg.Database.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownEngine(t *testing.T) {
	v := newTestViper()
	v.Set("database.in_memory", true)
	v.Set("ocr.engine", "abbyy")
	err := LoadConfig(v).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.engine")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROADEST_PIPELINE_WORKERS", "7")
	t.Setenv("DB_URL", "postgres://localhost/roads")

	cfg := LoadConfig(NewViper())
	assert.Equal(t, 7, cfg.Pipeline.Workers)
	assert.Equal(t, "postgres://localhost/roads", cfg.Database.DSN)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), nil, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("timeout")
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		boom := errors.New("corrupt pdf")
		err := WithRetry(context.Background(), nil, func(context.Context) error {
			calls++
			return Permanent(boom)
		}, opts)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		boom := errors.New("unreachable")
		err := WithRetry(context.Background(), nil, func(context.Context) error { return boom }, opts)
		require.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, boom)
	})
}

func TestIsFatalToBatch(t *testing.T) {
	assert.True(t, IsFatalToBatch(NewAppError(CodeDatabase, "begin tx", errors.New("conn refused"))))
	assert.True(t, IsFatalToBatch(WrapError(ErrDatabase, "insert")))
	assert.False(t, IsFatalToBatch(ErrExtractionFailed))
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.Equal(t, "doc-17", TraceIDFromContext(WithTraceID(ctx, "doc-17")))
}
