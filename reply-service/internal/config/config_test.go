package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_LayersAndDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
db:
  host: localhost
  port: 5432
reply:
  persist_unmatched_email: false
twilio:
  auth_token: ${TWILIO_TOKEN}
scheduler:
  outbox_replay_spec: "@every 5m"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(`
reply:
  persist_unmatched_email: true
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("TWILIO_TOKEN=tok\n"), 0o600))

	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.True(t, cfg.Reply.PersistUnmatchedEmail)
	assert.Equal(t, "tok", cfg.Twilio.AuthToken)
	assert.Equal(t, "@every 5m", cfg.Scheduler.OutboxReplaySpec)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, time.Second, cfg.OutboxInterval())
	assert.Equal(t, "reply-service.reply.received", cfg.Consumer.Queue)
}
