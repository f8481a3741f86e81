// The engine's root configuration. A loaded Config is an immutable snapshot;
// hot reload produces a fresh snapshot that is pushed to the engine, which
// re-derives its cached constants from it.
package config

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

var instance atomic.Pointer[Config]

// Config is the root configuration structure for the entire process.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Screen      ScreenConfig      `mapstructure:"screen"`
	Input       InputConfig       `mapstructure:"input"`
	Movement    MovementConfig    `mapstructure:"movement"`
	Speed       SpeedConfig       `mapstructure:"speed"`
	Stages      StagesConfig      `mapstructure:"stages"`
	Buffer      BufferConfig      `mapstructure:"buffer"`
	Prediction  PredictionConfig  `mapstructure:"prediction"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Hardware    HardwareConfig    `mapstructure:"hardware"`
	Driver      DriverConfig      `mapstructure:"driver"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// ScreenConfig describes the detection window the target coordinates live in.
// The crosshair is the window center.
type ScreenConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// InputConfig holds the pointing-device parameters used by the coordinate
// mapper. ReferenceDPI is the DPI the hardware calibration tables were
// measured at.
type InputConfig struct {
	DPI          int     `mapstructure:"dpi"`
	ReferenceDPI int     `mapstructure:"reference_dpi"`
	Sensitivity  float64 `mapstructure:"sensitivity"`
	FOVX         float64 `mapstructure:"fov_x"`
	FOVY         float64 `mapstructure:"fov_y"`
}

// MovementConfig holds the distance thresholds that drive the stage policy.
// All values are detector-window pixels except Threshold, which is in device
// units because the buffer accumulates mapped deltas. The exact numbers are
// empirical tuning constants, which is why they live here and not in code.
type MovementConfig struct {
	// MaxDistance rejects a single move outright; callers must split larger
	// moves themselves. Zero derives half the window diagonal.
	MaxDistance float64 `mapstructure:"max_distance"`
	// Threshold is the base anti-jitter threshold the buffer fractions key off.
	Threshold float64 `mapstructure:"threshold"`
	// PrecisionThreshold is the distance below which a precision-class target
	// is handled with one direct high-accuracy move.
	PrecisionThreshold float64 `mapstructure:"precision_threshold"`
	// DirectThreshold is the distance below which any target is handled with
	// a single-shot move instead of the two-stage lifecycle.
	DirectThreshold float64 `mapstructure:"direct_threshold"`
	// CoarseThreshold is the distance above which precision-class targets
	// enter the coarse/fine lifecycle.
	CoarseThreshold float64 `mapstructure:"coarse_threshold"`
	// CompletionThreshold is the residual distance considered "arrived".
	CompletionThreshold float64 `mapstructure:"completion_threshold"`
	// CoarseFraction is how far toward the target the coarse stage aims.
	CoarseFraction float64 `mapstructure:"coarse_fraction"`
}

// SpeedConfig paces mapped deltas by target distance and lifecycle stage. The
// base multiplier runs from MaxMultiplier at the crosshair down to
// MinMultiplier at the mapper's maximum distance; the per-stage boosts layer
// on top. A band of [1,1] with unit boosts disables pacing entirely.
type SpeedConfig struct {
	MinMultiplier  float64 `mapstructure:"min_multiplier"`
	MaxMultiplier  float64 `mapstructure:"max_multiplier"`
	BaseBoost      float64 `mapstructure:"base_boost"`
	PrecisionBoost float64 `mapstructure:"precision_boost"`
	DirectBoost    float64 `mapstructure:"direct_boost"`
	CoarseBoost    float64 `mapstructure:"coarse_boost"`
	FineBoost      float64 `mapstructure:"fine_boost"`
}

// StagesConfig bounds every stage of the movement lifecycle. Deadlines are
// polled once per detection cycle; there are no internal timers.
type StagesConfig struct {
	TransitionCooldown time.Duration `mapstructure:"transition_cooldown"`
	MinCoarse          time.Duration `mapstructure:"min_coarse"`
	MaxCoarse          time.Duration `mapstructure:"max_coarse"`
	MinFine            time.Duration `mapstructure:"min_fine"`
	MaxFine            time.Duration `mapstructure:"max_fine"`
	CompletingGrace    time.Duration `mapstructure:"completing_grace"`
	MovementTimeout    time.Duration `mapstructure:"movement_timeout"`
	FastAimTimeout     time.Duration `mapstructure:"fast_aim_timeout"`
}

// BufferConfig tunes the anti-jitter movement buffer.
type BufferConfig struct {
	Window time.Duration `mapstructure:"window"`
	// FlushFraction of MovementConfig.Threshold that forces a flush.
	FlushFraction float64 `mapstructure:"flush_fraction"`
	// PrecisionFloor flushes precision-class targets early (pixels).
	PrecisionFloor float64 `mapstructure:"precision_floor"`
	// Per-class fractions of MovementConfig.Threshold below which a delta is
	// buffered rather than executed directly.
	PrecisionBufferFraction float64 `mapstructure:"precision_buffer_fraction"`
	StageBufferFraction     float64 `mapstructure:"stage_buffer_fraction"`
	FastAimBufferFraction   float64 `mapstructure:"fast_aim_buffer_fraction"`
	DefaultBufferFraction   float64 `mapstructure:"default_buffer_fraction"`
}

// PredictionConfig controls target position prediction between detections.
type PredictionConfig struct {
	Disable  bool    `mapstructure:"disable"`
	Interval float64 `mapstructure:"interval"`
}

// CalibrationConfig tunes the adaptive calibration system and its store.
type CalibrationConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	Path                string  `mapstructure:"path"`
	ZoneSize            int     `mapstructure:"zone_size"`
	BucketSize          int     `mapstructure:"bucket_size"`
	LearningRate        float64 `mapstructure:"learning_rate"`
	MinFactor           float64 `mapstructure:"min_factor"`
	MaxFactor           float64 `mapstructure:"max_factor"`
	MinSamples          int     `mapstructure:"min_samples"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxDataPoints       int     `mapstructure:"max_data_points"`
	PersistedPoints     int     `mapstructure:"persisted_points"`
	AutosaveEvery       int     `mapstructure:"autosave_every"`
}

// HardwareConfig selects the active hardware profile.
type HardwareConfig struct {
	Profile string `mapstructure:"profile"`
}

// DriverConfig selects and tunes the movement transport.
type DriverConfig struct {
	// Transport is "auto", "serial" or "mock". Auto probes in priority order.
	Transport string       `mapstructure:"transport"`
	Serial    SerialConfig `mapstructure:"serial"`
}

// SerialConfig configures the serial HID-bridge transport.
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// Set stores the configuration snapshot globally.
func Set(cfg *Config) {
	instance.Store(cfg)
}

// Get returns the loaded configuration snapshot.
func Get() *Config {
	cfg := instance.Load()
	if cfg == nil {
		panic("configuration not initialized; call config.Set in the root command")
	}
	return cfg
}

// Load unmarshals the viper state into a fresh snapshot without touching the
// global; hot reload uses this so a broken edit never replaces a good snapshot.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: error unmarshaling: %w", err)
	}
	return &cfg, nil
}
