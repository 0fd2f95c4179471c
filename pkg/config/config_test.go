package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightgate/nightgate/pkg/policy"
	"github.com/nightgate/nightgate/pkg/quota"
)

// chdirTemp moves the test into an empty directory so no stray config.yaml
// is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, policy.NameTrajectory, cfg.Policy.Name)
	assert.Equal(t, quota.DefaultParams(), cfg.Policy.Params)
	assert.Equal(t, 100, cfg.Report.Every)
	assert.Equal(t, 10, cfg.Report.EarlyEvery)
	assert.Equal(t, 50, cfg.Report.EarlyUntil)
	assert.Equal(t, 6, cfg.Game.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Game.Throttle)
	assert.Equal(t, 1500*time.Millisecond, cfg.Game.BackoffMax)
	assert.Equal(t, 20000, cfg.Simulator.MaxRejections)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.Addresses)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	yaml := []byte(`
policy:
  name: helper
  tolerance: 8
game:
  player_id: from-file
`)
	require.NoError(t, os.WriteFile(dir+"/config.yaml", yaml, 0o600))
	t.Setenv("NIGHTGATE_GAME_PLAYER_ID", "from-env")
	t.Setenv("NIGHTGATE_REPORT_EVERY", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, policy.NameHelper, cfg.Policy.Name)
	assert.Equal(t, 8.0, cfg.Policy.Tolerance)
	assert.Equal(t, 1.02, cfg.Policy.OverfillFactor)
	assert.Equal(t, "from-env", cfg.Game.PlayerID)
	assert.Equal(t, 250, cfg.Report.Every)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	chdirTemp(t)
	t.Setenv("NIGHTGATE_POLICY_NAME", "greedy")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Policy: PolicyConfig{Name: policy.NameTrajectory, Params: quota.DefaultParams()},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative tolerance", func(c *Config) { c.Policy.Tolerance = -1 }},
		{"zero attempts", func(c *Config) { c.Game.MaxAttempts = 0 }},
		{"negative throttle", func(c *Config) { c.Game.Throttle = -time.Second }},
		{"zero max rejections", func(c *Config) { c.Simulator.MaxRejections = 0 }},
		{"redis without addresses", func(c *Config) { c.Redis.Enabled = true }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative report interval", func(c *Config) { c.Report.Every = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			cfg.Game.MaxAttempts = 1
			cfg.Simulator.MaxRejections = 1
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.Game.MaxAttempts = 1
	cfg.Simulator.MaxRejections = 1
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", db.DSN())
}
