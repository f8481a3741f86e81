package config

import "github.com/spf13/viper"

// SetDefaults registers default values so the engine can run with a minimal
// config file. Threshold and timing values mirror the tuning the movement
// policy was developed against; they are all overridable.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "pointctl")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	// Screen / input
	v.SetDefault("screen.width", 640)
	v.SetDefault("screen.height", 640)
	v.SetDefault("input.dpi", 800)
	v.SetDefault("input.reference_dpi", 800)
	v.SetDefault("input.sensitivity", 1.0)
	v.SetDefault("input.fov_x", 90.0)
	v.SetDefault("input.fov_y", 55.0)

	// Movement policy
	v.SetDefault("movement.max_distance", 0.0) // derived from window diagonal
	v.SetDefault("movement.threshold", 8.0)
	v.SetDefault("movement.precision_threshold", 25.0)
	v.SetDefault("movement.direct_threshold", 100.0)
	v.SetDefault("movement.coarse_threshold", 50.0)
	v.SetDefault("movement.completion_threshold", 10.0)
	v.SetDefault("movement.coarse_fraction", 0.8)

	// Speed pacing
	v.SetDefault("speed.min_multiplier", 0.9)
	v.SetDefault("speed.max_multiplier", 1.2)
	v.SetDefault("speed.base_boost", 1.0)
	v.SetDefault("speed.precision_boost", 0.85)
	v.SetDefault("speed.direct_boost", 1.1)
	v.SetDefault("speed.coarse_boost", 1.25)
	v.SetDefault("speed.fine_boost", 1.05)

	// Stage lifecycle
	v.SetDefault("stages.transition_cooldown", "20ms")
	v.SetDefault("stages.min_coarse", "100ms")
	v.SetDefault("stages.max_coarse", "200ms")
	v.SetDefault("stages.min_fine", "50ms")
	v.SetDefault("stages.max_fine", "300ms")
	v.SetDefault("stages.completing_grace", "50ms")
	v.SetDefault("stages.movement_timeout", "500ms")
	v.SetDefault("stages.fast_aim_timeout", "300ms")

	// Anti-jitter buffer
	v.SetDefault("buffer.window", "30ms")
	v.SetDefault("buffer.flush_fraction", 0.6)
	v.SetDefault("buffer.precision_floor", 3.0)
	v.SetDefault("buffer.precision_buffer_fraction", 0.5)
	v.SetDefault("buffer.stage_buffer_fraction", 0.7)
	v.SetDefault("buffer.fast_aim_buffer_fraction", 0.6)
	v.SetDefault("buffer.default_buffer_fraction", 0.5)

	// Prediction
	v.SetDefault("prediction.disable", false)
	v.SetDefault("prediction.interval", 1.0)

	// Calibration
	v.SetDefault("calibration.enabled", true)
	v.SetDefault("calibration.path", "calibration.db")
	v.SetDefault("calibration.zone_size", 200)
	v.SetDefault("calibration.bucket_size", 100)
	v.SetDefault("calibration.learning_rate", 0.1)
	v.SetDefault("calibration.min_factor", 0.5)
	v.SetDefault("calibration.max_factor", 2.0)
	v.SetDefault("calibration.min_samples", 5)
	v.SetDefault("calibration.confidence_threshold", 0.8)
	v.SetDefault("calibration.max_data_points", 10000)
	v.SetDefault("calibration.persisted_points", 1000)
	v.SetDefault("calibration.autosave_every", 10)

	// Hardware / driver
	v.SetDefault("hardware.profile", "highspeed")
	v.SetDefault("driver.transport", "auto")
	v.SetDefault("driver.serial.port", "")
	v.SetDefault("driver.serial.baud", 115200)
}
