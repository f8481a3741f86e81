// Package mapper converts detector-window pixel offsets into integer
// device-unit deltas, layering DPI/sensitivity scaling, the active hardware
// profile's measured tables, and the adaptive calibration corrections.
package mapper

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/geom"
	"github.com/xkilldash9x/pointctl/internal/hardware"
)

// ErrMoveTooLarge rejects a single move beyond the configured maximum
// distance. The caller must split such moves; the mapper never issues a
// partial result.
var ErrMoveTooLarge = errors.New("mapper: move exceeds maximum distance")

// CorrectionSource supplies the adaptive zone+distance correction factors.
// Implemented by the calibration system; nil means identity.
type CorrectionSource interface {
	CombinedCorrection(target geom.Vector2D, distance float64) (fx, fy float64)
}

// Mapper holds constants derived from one configuration snapshot. Reconfigure
// re-derives them for hot reload; everything else is read-only after New.
type Mapper struct {
	log         *zap.Logger
	profile     *hardware.Profile
	corrections CorrectionSource

	dpiFactor   float64
	sensitivity float64
	maxDistance float64

	// FOV-derived device-units-per-pixel fallback, used when the profile
	// carries no measured anchor table.
	fovBaseX float64
	fovBaseY float64

	history ring
}

// New builds a mapper for the given snapshot and active hardware profile.
func New(cfg *config.Config, profile *hardware.Profile, logger *zap.Logger) (*Mapper, error) {
	if profile == nil {
		return nil, fmt.Errorf("mapper: nil hardware profile")
	}
	m := &Mapper{
		log:     logger.Named("mapper"),
		profile: profile,
		history: newRing(256),
	}
	if err := m.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// AttachCorrections wires in the adaptive calibration system. May be nil.
func (m *Mapper) AttachCorrections(src CorrectionSource) {
	m.corrections = src
}

// Reconfigure re-derives the cached constants from a new configuration
// snapshot without replacing the mapper. Called on hot reload.
func (m *Mapper) Reconfigure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.dpiFactor = float64(cfg.Input.DPI) / float64(cfg.Input.ReferenceDPI)
	m.sensitivity = cfg.Input.Sensitivity

	w, h := float64(cfg.Screen.Width), float64(cfg.Screen.Height)
	m.maxDistance = cfg.Movement.MaxDistance
	if m.maxDistance == 0 {
		m.maxDistance = math.Hypot(w, h) / 2
	}

	// Angular fallback: degrees per pixel scaled to device counts at the
	// reference DPI.
	refDPI := float64(cfg.Input.ReferenceDPI)
	m.fovBaseX = (cfg.Input.FOVX / w) * (refDPI / 360.0)
	m.fovBaseY = (cfg.Input.FOVY / h) * (refDPI / 360.0)

	m.log.Debug("mapper constants derived",
		zap.Float64("dpi_factor", m.dpiFactor),
		zap.Float64("sensitivity", m.sensitivity),
		zap.Float64("max_distance", m.maxDistance))
	return nil
}

// Compute translates a move from current to target into integer device units.
// It guarantees monotonicity in pixel distance along a fixed direction for a
// monotonically non-decreasing anchor table.
func (m *Mapper) Compute(current, target geom.Vector2D) (int, int, error) {
	ex, ey, err := m.ComputeExact(current, target)
	if err != nil {
		return 0, 0, err
	}
	return int(math.Round(ex)), int(math.Round(ey)), nil
}

// ComputeExact is Compute without the final integer rounding. The movement
// buffer accumulates these so sub-unit deltas are not lost to rounding before
// they add up to something worth sending.
func (m *Mapper) ComputeExact(current, target geom.Vector2D) (float64, float64, error) {
	delta := target.Sub(current)
	distance := delta.Mag()
	if distance > m.maxDistance {
		return 0, 0, fmt.Errorf("%w: %.1fpx > %.1fpx", ErrMoveTooLarge, distance, m.maxDistance)
	}
	if distance == 0 {
		return 0, 0, nil
	}

	fx, fy := m.factorsAt(target, distance)
	m.history.record(distance, fx, fy)
	return delta.X * fx, delta.Y * fy, nil
}

// InverseApprox converts a device delta back to an approximate pixel delta
// using the factors at the given pixel distance. It is the approximate
// inverse of Compute, exact up to integer rounding.
func (m *Mapper) InverseApprox(dx, dy int, target geom.Vector2D, distance float64) geom.Vector2D {
	fx, fy := m.factorsAt(target, distance)
	var out geom.Vector2D
	if fx != 0 {
		out.X = float64(dx) / fx
	}
	if fy != 0 {
		out.Y = float64(dy) / fy
	}
	return out
}

// factorsAt computes the full per-axis device-units-per-pixel factor chain at
// a given distance: base ratio, DPI scaling, sensitivity, axis bias, inverse
// precision/linearity ratings, distance compensation, adaptive correction.
func (m *Mapper) factorsAt(target geom.Vector2D, distance float64) (float64, float64) {
	baseX, baseY := m.fovBaseX, m.fovBaseY
	precisionComp, linearityComp := 1.0, 1.0
	if m.profile.Anchors != nil {
		anchor := m.profile.Anchors.Lookup(distance)
		baseX, baseY = anchor.CoeffX, anchor.CoeffY
		precisionComp = anchor.PrecisionFactor
		linearityComp = anchor.LinearityFactor
	}

	fx := baseX * m.dpiFactor * m.sensitivity
	fy := baseY * m.dpiFactor * m.sensitivity

	fx *= m.profile.AxisBiasX / (m.profile.PrecisionRating * m.profile.LinearityRating)
	fy *= m.profile.AxisBiasY / (m.profile.PrecisionRating * m.profile.LinearityRating)

	fx *= precisionComp * linearityComp
	fy *= precisionComp * linearityComp

	comp := m.profile.Compensation.Factor(distance)
	fx *= comp
	fy *= comp

	if m.corrections != nil {
		cx, cy := m.corrections.CombinedCorrection(target, distance)
		fx *= cx
		fy *= cy
	}
	return fx, fy
}

// MaxDistance returns the configured single-move distance limit.
func (m *Mapper) MaxDistance() float64 {
	return m.maxDistance
}
