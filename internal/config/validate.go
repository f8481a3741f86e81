package config

import "fmt"

// Validate rejects configurations the engine cannot compute sensible ratios
// from. These are the only fatal errors in the system; everything past
// startup is recoverable per cycle.
func (c *Config) Validate() error {
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("config: screen dimensions must be positive, got %dx%d", c.Screen.Width, c.Screen.Height)
	}
	if c.Input.DPI <= 0 {
		return fmt.Errorf("config: input.dpi must be positive, got %d", c.Input.DPI)
	}
	if c.Input.ReferenceDPI <= 0 {
		return fmt.Errorf("config: input.reference_dpi must be positive, got %d", c.Input.ReferenceDPI)
	}
	if c.Input.Sensitivity <= 0 {
		return fmt.Errorf("config: input.sensitivity must be positive, got %g", c.Input.Sensitivity)
	}
	if c.Input.FOVX <= 0 || c.Input.FOVY <= 0 {
		return fmt.Errorf("config: field of view must be positive, got %gx%g", c.Input.FOVX, c.Input.FOVY)
	}
	if c.Movement.MaxDistance < 0 {
		return fmt.Errorf("config: movement.max_distance must not be negative")
	}
	if c.Movement.Threshold <= 0 {
		return fmt.Errorf("config: movement.threshold must be positive")
	}
	if c.Movement.CoarseFraction <= 0 || c.Movement.CoarseFraction >= 1 {
		return fmt.Errorf("config: movement.coarse_fraction must be in (0,1), got %g", c.Movement.CoarseFraction)
	}
	if c.Speed.MinMultiplier <= 0 || c.Speed.MaxMultiplier < c.Speed.MinMultiplier {
		return fmt.Errorf("config: speed multiplier band [%g,%g] is invalid", c.Speed.MinMultiplier, c.Speed.MaxMultiplier)
	}
	for name, boost := range map[string]float64{
		"base":      c.Speed.BaseBoost,
		"precision": c.Speed.PrecisionBoost,
		"direct":    c.Speed.DirectBoost,
		"coarse":    c.Speed.CoarseBoost,
		"fine":      c.Speed.FineBoost,
	} {
		if boost <= 0 {
			return fmt.Errorf("config: speed.%s_boost must be positive, got %g", name, boost)
		}
	}
	if c.Stages.MinCoarse > c.Stages.MaxCoarse {
		return fmt.Errorf("config: stages.min_coarse exceeds stages.max_coarse")
	}
	if c.Stages.MinFine > c.Stages.MaxFine {
		return fmt.Errorf("config: stages.min_fine exceeds stages.max_fine")
	}
	if c.Stages.TransitionCooldown < 0 || c.Stages.MovementTimeout <= 0 {
		return fmt.Errorf("config: stage timing bounds are inconsistent")
	}
	if c.Buffer.Window <= 0 {
		return fmt.Errorf("config: buffer.window must be positive")
	}
	if c.Calibration.LearningRate <= 0 || c.Calibration.LearningRate > 1 {
		return fmt.Errorf("config: calibration.learning_rate must be in (0,1], got %g", c.Calibration.LearningRate)
	}
	if c.Calibration.MinFactor <= 0 || c.Calibration.MinFactor >= c.Calibration.MaxFactor {
		return fmt.Errorf("config: calibration clamp band [%g,%g] is invalid", c.Calibration.MinFactor, c.Calibration.MaxFactor)
	}
	if c.Calibration.ZoneSize <= 0 || c.Calibration.BucketSize <= 0 {
		return fmt.Errorf("config: calibration tile sizes must be positive")
	}
	return nil
}
