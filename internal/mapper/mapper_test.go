package mapper

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/geom"
	"github.com/xkilldash9x/pointctl/internal/hardware"
)

func testConfig() *config.Config {
	return &config.Config{
		Screen: config.ScreenConfig{Width: 640, Height: 640},
		Input: config.InputConfig{
			DPI:          800,
			ReferenceDPI: 800,
			Sensitivity:  1.0,
			FOVX:         90.0,
			FOVY:         55.0,
		},
		Movement: config.MovementConfig{
			Threshold:      8.0,
			CoarseFraction: 0.8,
		},
		Speed: config.SpeedConfig{
			MinMultiplier:  1.0,
			MaxMultiplier:  1.0,
			BaseBoost:      1.0,
			PrecisionBoost: 1.0,
			DirectBoost:    1.0,
			CoarseBoost:    1.0,
			FineBoost:      1.0,
		},
		Stages: config.StagesConfig{
			MinCoarse:       100 * time.Millisecond,
			MaxCoarse:       200 * time.Millisecond,
			MinFine:         50 * time.Millisecond,
			MaxFine:         300 * time.Millisecond,
			MovementTimeout: 500 * time.Millisecond,
		},
		Buffer: config.BufferConfig{Window: 30 * time.Millisecond},
		Calibration: config.CalibrationConfig{
			LearningRate: 0.1,
			MinFactor:    0.5,
			MaxFactor:    2.0,
			ZoneSize:     200,
			BucketSize:   100,
		},
	}
}

func testMapper(t *testing.T) *Mapper {
	t.Helper()
	profile, err := hardware.Lookup("highspeed")
	require.NoError(t, err)
	m, err := New(testConfig(), profile, zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

func TestComputeZeroDelta(t *testing.T) {
	m := testMapper(t)
	dx, dy, err := m.Compute(geom.Vector2D{X: 320, Y: 320}, geom.Vector2D{X: 320, Y: 320})
	require.NoError(t, err)
	assert.Zero(t, dx)
	assert.Zero(t, dy)
}

func TestComputeMonotonicInDistance(t *testing.T) {
	m := testMapper(t)
	origin := geom.Vector2D{X: 320, Y: 320}

	// Along a fixed direction, larger pixel distances must never produce a
	// smaller device delta.
	dir := geom.Vector2D{X: 3, Y: 4}.Normalize()
	prevMag := 0.0
	for d := 5.0; d <= 400; d += 5 {
		target := origin.Add(dir.Mul(d))
		dx, dy, err := m.Compute(origin, target)
		require.NoError(t, err)
		mag := math.Hypot(float64(dx), float64(dy))
		assert.GreaterOrEqual(t, mag, prevMag, "distance %.0f", d)
		prevMag = mag
	}
}

func TestComputeApproximateRoundTrip(t *testing.T) {
	m := testMapper(t)
	origin := geom.Vector2D{X: 320, Y: 320}

	for _, d := range []float64{15, 40, 120, 250} {
		target := origin.Add(geom.Vector2D{X: d, Y: -d / 2})
		delta := target.Sub(origin)

		dx, dy, err := m.Compute(origin, target)
		require.NoError(t, err)

		back := m.InverseApprox(dx, dy, target, delta.Mag())
		// Rounding to integer device units costs at most one unit per axis;
		// allow the pixel equivalent of that plus a small margin.
		assert.InDelta(t, delta.X, back.X, 10.0, "x at distance %.0f", d)
		assert.InDelta(t, delta.Y, back.Y, 10.0, "y at distance %.0f", d)
	}
}

func TestComputeRejectsOversizedMove(t *testing.T) {
	m := testMapper(t)
	_, _, err := m.Compute(geom.Vector2D{}, geom.Vector2D{X: 5000, Y: 5000})
	assert.ErrorIs(t, err, ErrMoveTooLarge)
}

func TestReconfigureRederivesConstants(t *testing.T) {
	m := testMapper(t)
	origin := geom.Vector2D{X: 320, Y: 320}
	target := geom.Vector2D{X: 420, Y: 320}

	dx1, _, err := m.Compute(origin, target)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Input.DPI = 1600 // doubles the DPI factor
	require.NoError(t, m.Reconfigure(cfg))

	dx2, _, err := m.Compute(origin, target)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, float64(dx2)/float64(dx1), 0.1, "doubling DPI should roughly double device units")
}

func TestReconfigureRejectsInvalidSnapshot(t *testing.T) {
	m := testMapper(t)
	cfg := testConfig()
	cfg.Screen.Width = 0
	assert.Error(t, m.Reconfigure(cfg))
}

type fixedCorrection struct{ fx, fy float64 }

func (f fixedCorrection) CombinedCorrection(geom.Vector2D, float64) (float64, float64) {
	return f.fx, f.fy
}

func TestComputeAppliesCorrections(t *testing.T) {
	m := testMapper(t)
	origin := geom.Vector2D{X: 320, Y: 320}
	target := geom.Vector2D{X: 420, Y: 420}

	dx1, dy1, err := m.Compute(origin, target)
	require.NoError(t, err)

	m.AttachCorrections(fixedCorrection{fx: 1.5, fy: 0.5})
	dx2, dy2, err := m.Compute(origin, target)
	require.NoError(t, err)

	assert.InDelta(t, 1.5, float64(dx2)/float64(dx1), 0.05)
	assert.InDelta(t, 0.5, float64(dy2)/float64(dy1), 0.05)
}

func TestStats(t *testing.T) {
	m := testMapper(t)
	origin := geom.Vector2D{X: 320, Y: 320}
	for i := 1; i <= 5; i++ {
		_, _, err := m.Compute(origin, origin.Add(geom.Vector2D{X: float64(20 * i)}))
		require.NoError(t, err)
	}
	s := m.Stats()
	assert.Equal(t, uint64(5), s.TotalMappings)
	assert.Equal(t, 5, s.RecentSamples)
	assert.InDelta(t, 60.0, s.MeanDistance, 1e-9)
	assert.Greater(t, s.MeanUnitsPerPxX, 0.0)
}
