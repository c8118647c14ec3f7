package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MATCH_FEED_URL", "http://feed.local/matches")
	t.Setenv("DEDUP_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://feed.local/matches", cfg.MatchFeedURL)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 360*time.Minute, cfg.DefaultMatchDuration)
	assert.Equal(t, 24*time.Hour, cfg.DedupRetention)
	assert.Equal(t, "@hourly", cfg.SweepSchedule)
	assert.Equal(t, time.Duration(0), cfg.LiveWindowAfter)
	assert.Equal(t, time.UTC, cfg.MatchTimezone)
	assert.True(t, cfg.AutoStartPoller)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MATCH_FEED_URL", "http://feed.local/matches")
	t.Setenv("DEDUP_BACKEND", "REDIS")
	t.Setenv("LIVE_WINDOW_AFTER_SECONDS", "60")
	t.Setenv("POLL_INTERVAL_SECONDS", "30")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.DedupBackend)
	assert.Equal(t, time.Minute, cfg.LiveWindowAfter)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, int64(-100123), cfg.TelegramChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing feed url", map[string]string{"DEDUP_BACKEND": "memory"}},
		{"postgres without url", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "etcd"}},
		{"bad timezone", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "memory", "MATCH_TIMEZONE": "Mars/Base"}},
		{"bad sweep schedule", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "memory", "SWEEP_SCHEDULE": "every hour"}},
		{"live window overlaps five minutes", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "memory", "LIVE_WINDOW_AFTER_SECONDS": "240"}},
		{"negative live window", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "memory", "LIVE_WINDOW_AFTER_SECONDS": "-60"}},
		{"zero interval", map[string]string{"MATCH_FEED_URL": "http://x", "DEDUP_BACKEND": "memory", "POLL_INTERVAL_SECONDS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MATCH_FEED_URL", "")
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
