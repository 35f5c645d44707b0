package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ecorewards/loyalty-engine/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecorewards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.SweepInterval())
	assert.Equal(t, 10*time.Second, cfg.Scheduler.SendTimeout())
}

func TestLoad_PartialFileMergesOverDefaults(t *testing.T) {
	// GIVEN: A file that only sets the port and the cooldown
	// THEN: Everything else keeps its default

	path := writeConfig(t, `
server:
  port: 9090
scheduler:
  cooldown_days: 14
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Scheduler.CooldownDays)
	assert.Equal(t, "ecorewards.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Scheduler.DueInDays)
	assert.Equal(t, "noreply@ecorewards.com", cfg.Email.From)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 3000
database:
  path: /var/lib/ecorewards/data.db
scheduler:
  sweep_interval_hours: 12
  cooldown_days: 45
  due_in_days: 5
  send_timeout_seconds: 30
  max_concurrent: 8
sms:
  account_sid: AC123
  auth_token: secret
  from: "+15550000000"
email:
  server_token: pm-token
  from: billing@ecorewards.com
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/var/lib/ecorewards/data.db", cfg.Database.Path)
	assert.Equal(t, 12*time.Hour, cfg.Scheduler.SweepInterval())
	assert.Equal(t, 45, cfg.Scheduler.CooldownDays)
	assert.Equal(t, 5, cfg.Scheduler.DueInDays)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.SendTimeout())
	assert.Equal(t, 8, cfg.Scheduler.MaxConcurrent)
	assert.Equal(t, "AC123", cfg.SMS.AccountSID)
	assert.Equal(t, "pm-token", cfg.Email.ServerToken)
	assert.Equal(t, "billing@ecorewards.com", cfg.Email.From)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a mapping")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_NegativeValuesRestoredToDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: -1
scheduler:
  max_concurrent: 0
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrent)
}
