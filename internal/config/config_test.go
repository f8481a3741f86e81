package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsProduceValidConfig(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 640, cfg.Screen.Width)
	assert.Equal(t, 640, cfg.Screen.Height)
	assert.Equal(t, 800, cfg.Input.DPI)
	assert.Equal(t, 8.0, cfg.Movement.Threshold)
	assert.Equal(t, 0.8, cfg.Movement.CoarseFraction)
	assert.Equal(t, 0.9, cfg.Speed.MinMultiplier)
	assert.Equal(t, 1.2, cfg.Speed.MaxMultiplier)
	assert.Equal(t, 1.25, cfg.Speed.CoarseBoost)
	assert.Equal(t, 20*time.Millisecond, cfg.Stages.TransitionCooldown)
	assert.Equal(t, 500*time.Millisecond, cfg.Stages.MovementTimeout)
	assert.Equal(t, 30*time.Millisecond, cfg.Buffer.Window)
	assert.Equal(t, 0.6, cfg.Buffer.FlushFraction)
	assert.True(t, cfg.Calibration.Enabled)
	assert.Equal(t, 200, cfg.Calibration.ZoneSize)
	assert.Equal(t, "auto", cfg.Driver.Transport)
	assert.Equal(t, "highspeed", cfg.Hardware.Profile)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero screen width", func(c *Config) { c.Screen.Width = 0 }},
		{"negative screen height", func(c *Config) { c.Screen.Height = -1 }},
		{"zero dpi", func(c *Config) { c.Input.DPI = 0 }},
		{"zero reference dpi", func(c *Config) { c.Input.ReferenceDPI = 0 }},
		{"zero sensitivity", func(c *Config) { c.Input.Sensitivity = 0 }},
		{"zero fov", func(c *Config) { c.Input.FOVX = 0 }},
		{"negative max distance", func(c *Config) { c.Movement.MaxDistance = -1 }},
		{"zero threshold", func(c *Config) { c.Movement.Threshold = 0 }},
		{"coarse fraction at one", func(c *Config) { c.Movement.CoarseFraction = 1.0 }},
		{"speed band inverted", func(c *Config) { c.Speed.MaxMultiplier = 0.5 }},
		{"zero speed multiplier", func(c *Config) { c.Speed.MinMultiplier = 0 }},
		{"negative stage boost", func(c *Config) { c.Speed.CoarseBoost = -1 }},
		{"coarse bounds inverted", func(c *Config) { c.Stages.MinCoarse = 300 * time.Millisecond }},
		{"fine bounds inverted", func(c *Config) { c.Stages.MinFine = time.Second }},
		{"zero movement timeout", func(c *Config) { c.Stages.MovementTimeout = 0 }},
		{"zero buffer window", func(c *Config) { c.Buffer.Window = 0 }},
		{"learning rate above one", func(c *Config) { c.Calibration.LearningRate = 1.5 }},
		{"clamp band inverted", func(c *Config) { c.Calibration.MinFactor = 3.0 }},
		{"zero zone size", func(c *Config) { c.Calibration.ZoneSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("movement.threshold", 12.0)
	v.Set("stages.min_coarse", "80ms")
	v.Set("driver.transport", "mock")

	cfg, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 12.0, cfg.Movement.Threshold)
	assert.Equal(t, 80*time.Millisecond, cfg.Stages.MinCoarse)
	assert.Equal(t, "mock", cfg.Driver.Transport)
}

func TestSetGetRoundTrip(t *testing.T) {
	cfg := defaultConfig(t)
	Set(cfg)
	assert.Same(t, cfg, Get())
}
