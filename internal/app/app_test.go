package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/dedup"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger(&buf, "nonsense", true).Info("json")
	assert.Contains(t, buf.String(), `"msg":"json"`)
}

func TestOpenMemoryStore(t *testing.T) {
	cfg := &config.Config{DedupBackend: config.BackendMemory}
	store, err := OpenStore(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer store.Close()

	assert.Nil(t, store.Pool)
	_, ok := store.Store.(*dedup.Memory)
	assert.True(t, ok)
}

func TestOpenUnknownStore(t *testing.T) {
	cfg := &config.Config{DedupBackend: "etcd"}
	_, err := OpenStore(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestTelegramDisabledWithoutCredentials(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, NewTelegram(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestNewEngineUsesConfig(t *testing.T) {
	cfg := &config.Config{DedupRetention: 48 * time.Hour}
	e := NewEngine(cfg, dedup.NewMemory(), nil, nil, nil)
	assert.Equal(t, 48*time.Hour, e.Retention())
}
