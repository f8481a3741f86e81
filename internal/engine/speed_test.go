package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/geom"
)

func scalerConfig() *config.Config {
	cfg := engineTestConfig()
	cfg.Movement.MaxDistance = 400
	cfg.Speed = config.SpeedConfig{
		MinMultiplier:  0.8,
		MaxMultiplier:  1.6,
		BaseBoost:      1.0,
		PrecisionBoost: 1.0,
		DirectBoost:    1.0,
		CoarseBoost:    1.0,
		FineBoost:      1.0,
	}
	return cfg
}

func TestSpeedMultiplierInterpolatesOverDistance(t *testing.T) {
	s := newSpeedScaler(scalerConfig())

	assert.InDelta(t, 1.6, s.multiplier(kindDefault, StateMoving, 0), 1e-9, "crosshair rides the fast end")
	assert.InDelta(t, 1.2, s.multiplier(kindDefault, StateMoving, 200), 1e-9, "midpoint interpolates linearly")
	assert.InDelta(t, 0.8, s.multiplier(kindDefault, StateMoving, 400), 1e-9, "max distance rides the slow end")
	assert.InDelta(t, 0.8, s.multiplier(kindDefault, StateMoving, 2000), 1e-9, "beyond the maximum clamps")
}

func TestSpeedMultiplierStageBoosts(t *testing.T) {
	cfg := scalerConfig()
	cfg.Speed.BaseBoost = 1.5
	cfg.Speed.PrecisionBoost = 0.8
	cfg.Speed.DirectBoost = 1.1
	cfg.Speed.CoarseBoost = 2.5
	cfg.Speed.FineBoost = 1.8
	s := newSpeedScaler(cfg)

	base := 1.2 * 1.5 // midpoint of the band times the base boost
	tests := []struct {
		name string
		kind moveKind
		st   State
		want float64
	}{
		{"precision", kindPrecision, StateMoving, base * 0.8},
		{"direct", kindDirect, StateMoving, base * 1.1},
		{"coarse stage", kindStage, StateCoarse, base * 2.5},
		{"fine stage", kindStage, StateFine, base * 1.8},
		{"default", kindDefault, StateMoving, base},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, s.multiplier(tc.kind, tc.st, 200), 1e-9)
		})
	}
}

func TestSpeedUnitBandIsIdentity(t *testing.T) {
	s := newSpeedScaler(engineTestConfig())
	for _, d := range []float64{0, 50, 300, 1000} {
		assert.Equal(t, 1.0, s.multiplier(kindDefault, StateMoving, d), "distance %.0f", d)
		assert.Equal(t, 1.0, s.multiplier(kindStage, StateCoarse, d))
	}
}

func TestSpeedScalesIssuedMoves(t *testing.T) {
	// Two engines fed the same target, one with a doubled band: the paced
	// move is twice the neutral one, give or take a rounding unit.
	neutral, neutralMock, _ := testEngine(t, engineTestConfig(), nil)
	fast := engineTestConfig()
	fast.Speed.MinMultiplier = 2.0
	fast.Speed.MaxMultiplier = 2.0
	paced, pacedMock, _ := testEngine(t, fast, nil)

	target := TargetDescriptor{Center: geom.Vector2D{X: 410, Y: 320}, Class: ClassGeneric}
	require.NoError(t, neutral.ProcessTarget(context.Background(), target))
	require.NoError(t, paced.ProcessTarget(context.Background(), target))

	nm := neutralMock.Moves()
	pm := pacedMock.Moves()
	require.Len(t, nm, 1)
	require.Len(t, pm, 1)
	assert.InDelta(t, float64(2*nm[0].DX), float64(pm[0].DX), 1.0)
	assert.InDelta(t, float64(2*nm[0].DY), float64(pm[0].DY), 1.0)
}
