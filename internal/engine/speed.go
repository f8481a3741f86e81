package engine

import (
	"math"

	"github.com/xkilldash9x/pointctl/internal/config"
)

// speedScaler paces mapped deltas. The base multiplier interpolates across
// the configured band over distance normalized to the mapper's maximum, so
// near targets ride the fast end and far ones the slow end; each movement
// kind then layers its own boost on top, with the fine stage of a staged
// movement distinguished from the coarse one.
type speedScaler struct {
	cfg         config.SpeedConfig
	maxDistance float64
}

func newSpeedScaler(cfg *config.Config) *speedScaler {
	s := &speedScaler{}
	s.Reconfigure(cfg)
	return s
}

// Reconfigure re-derives the scaler's constants from a new snapshot.
func (s *speedScaler) Reconfigure(cfg *config.Config) {
	s.cfg = cfg.Speed
	s.maxDistance = cfg.Movement.MaxDistance
	if s.maxDistance == 0 {
		s.maxDistance = math.Hypot(float64(cfg.Screen.Width), float64(cfg.Screen.Height)) / 2
	}
}

func (s *speedScaler) multiplier(kind moveKind, st State, distance float64) float64 {
	norm := math.Min(distance/s.maxDistance, 1.0)
	base := s.cfg.MinMultiplier + (s.cfg.MaxMultiplier-s.cfg.MinMultiplier)*(1-norm)
	base *= s.cfg.BaseBoost

	switch kind {
	case kindPrecision:
		return base * s.cfg.PrecisionBoost
	case kindDirect:
		return base * s.cfg.DirectBoost
	case kindStage:
		if st == StateFine {
			return base * s.cfg.FineBoost
		}
		return base * s.cfg.CoarseBoost
	default:
		return base
	}
}
