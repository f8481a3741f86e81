package engine

import (
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/xkilldash9x/pointctl/internal/geom"
)

// moveKind selects the smoothing weight for one computed offset.
type moveKind int

const (
	kindPrecision moveKind = iota
	kindDirect
	kindStage
	kindDefault
)

func (k moveKind) alpha() float64 {
	switch k {
	case kindPrecision:
		return 0.9
	case kindDirect:
		return 0.6
	case kindStage:
		return 0.7
	default:
		return 0.85
	}
}

// driftScale bounds the perlin micro-drift to well under a pixel.
const driftScale = 0.3

// Smoother blends consecutive offsets with an exponential moving average and
// layers a faint coherent drift on top so repeated identical offsets do not
// produce perfectly identical commands.
type Smoother struct {
	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin

	last    geom.Vector2D
	hasLast bool
	t       float64
}

// NewSmoother seeds from the wall clock.
func NewSmoother() *Smoother {
	return NewSmootherWithSeed(time.Now().UnixNano())
}

// NewSmootherWithSeed builds a deterministic smoother for tests.
func NewSmootherWithSeed(seed int64) *Smoother {
	alpha, beta, n := 2.0, 2.0, int32(3)
	return &Smoother{
		rng:    rand.New(rand.NewSource(seed)),
		noiseX: perlin.NewPerlin(alpha, beta, n, seed),
		noiseY: perlin.NewPerlin(alpha, beta, n, seed+1), // offset seed for Y noise
	}
}

// Smooth returns the blended offset for this cycle.
func (s *Smoother) Smooth(offset geom.Vector2D, kind moveKind) geom.Vector2D {
	a := kind.alpha()
	if !s.hasLast {
		s.last = offset
		s.hasLast = true
	} else {
		s.last = geom.Vector2D{
			X: a*offset.X + (1-a)*s.last.X,
			Y: a*offset.Y + (1-a)*s.last.Y,
		}
	}

	out := s.last
	// Only dither real movements; a resting offset stays exactly zero.
	if out.Mag() > 1.0 {
		s.t += 0.01 + s.rng.Float64()*0.005
		out.X += s.noiseX.Noise1D(s.t) * driftScale
		out.Y += s.noiseY.Noise1D(s.t) * driftScale
	}
	return out
}

// Reset forgets the blend history. Called when a movement cycle ends so the
// next target starts from a clean slate.
func (s *Smoother) Reset() {
	s.last = geom.Vector2D{}
	s.hasLast = false
}
