package engine

import (
	"math"
	"time"

	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/geom"
)

// speedCorrectionFactor scales how strongly a change in target distance
// inflates the prediction lead.
const speedCorrectionFactor = 0.1

// Predictor extrapolates where a moving target will be by the time the
// movement lands, from per-detection velocity and acceleration estimates.
// A jump larger than 30% of the window is treated as a target switch and
// resets the estimate.
type Predictor struct {
	interval    float64
	maxJump     float64
	maxDistance float64

	prev         geom.Vector2D
	prevVel      geom.Vector2D
	prevTime     time.Time
	prevDistance float64
	hasPrev      bool
	hasPrevDist  bool
}

// NewPredictor derives the prediction constants from the snapshot.
func NewPredictor(cfg *config.Config) *Predictor {
	p := &Predictor{}
	p.Reconfigure(cfg)
	return p
}

// Reconfigure re-derives constants on hot reload.
func (p *Predictor) Reconfigure(cfg *config.Config) {
	w, h := float64(cfg.Screen.Width), float64(cfg.Screen.Height)
	p.interval = cfg.Prediction.Interval
	p.maxJump = math.Max(w, h) * 0.3
	p.maxDistance = math.Hypot(w, h) / 2
}

// Predict returns the extrapolated target position. The first observation
// and any target switch pass through unchanged.
func (p *Predictor) Predict(target geom.Vector2D, now time.Time) geom.Vector2D {
	if !p.hasPrev {
		p.prev = target
		p.prevTime = now
		p.prevVel = geom.Vector2D{}
		p.hasPrev = true
		return target
	}

	if math.Abs(target.X-p.prev.X) > p.maxJump || math.Abs(target.Y-p.prev.Y) > p.maxJump {
		p.prev = target
		p.prevTime = now
		p.prevVel = geom.Vector2D{}
		p.hasPrevDist = false
		return target
	}

	dt := now.Sub(p.prevTime).Seconds()
	if dt <= 0 {
		dt = 1e-6
	}

	vel := target.Sub(p.prev).Mul(1 / dt)
	acc := vel.Sub(p.prevVel).Mul(1 / dt)

	lead := dt * p.interval
	moved := target.Dist(p.prev)
	// Close targets get a heavily damped lead so prediction never overshoots
	// at the point where accuracy matters most.
	proximity := math.Max(0.1, math.Min(1, 1/(moved+1)))

	speed := 1e-4
	if p.hasPrevDist {
		speed = 1 + (math.Abs(moved-p.prevDistance)/p.maxDistance)*speedCorrectionFactor
	}

	predicted := target.
		Add(vel.Mul(lead * proximity * speed)).
		Add(acc.Mul(0.5 * lead * lead * proximity * speed))

	p.prev = target
	p.prevVel = vel
	p.prevTime = now
	p.prevDistance = moved
	p.hasPrevDist = true

	return predicted
}

// Reset forgets the tracked target. Called on no-target cleanup.
func (p *Predictor) Reset() {
	p.hasPrev = false
	p.hasPrevDist = false
	p.prevVel = geom.Vector2D{}
}
