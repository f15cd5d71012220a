package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "8082", cfg.ServerPort)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Hour, cfg.SweepGrace)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SWEEP_GRACE", "90m")
	t.Setenv("NOTIFY_WORKERS", "4")
	t.Setenv("NOTIFY_RATE", "not-a-number")
	t.Setenv("DB_NAME", "studio_test")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.SweepGrace)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, float64(50), cfg.NotifyRate)
	assert.Contains(t, cfg.DSN(), "dbname=studio_test")
}

func TestValidate_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg := Load()

	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")
}
