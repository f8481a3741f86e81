package hardware

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Anchor is one measured calibration point of a device-unit mapping table.
// CoeffX/CoeffY are device units per pixel at the anchor distance; the
// precision and linearity factors compensate observed non-linearity around it.
type Anchor struct {
	Distance        float64
	CoeffX          float64
	CoeffY          float64
	PrecisionFactor float64
	LinearityFactor float64
	Confidence      float64
}

// Table interpolates anchors linearly by pixel distance. Queries outside the
// anchor range are clamped to the nearest anchor; the table never
// extrapolates.
type Table struct {
	anchors []Anchor
	minDist float64
	maxDist float64

	coeffX    interp.PiecewiseLinear
	coeffY    interp.PiecewiseLinear
	precision interp.PiecewiseLinear
	linearity interp.PiecewiseLinear
}

// NewTable validates and indexes a set of anchors. Anchors must have strictly
// increasing distances and positive factors.
func NewTable(anchors []Anchor) (*Table, error) {
	if len(anchors) == 0 {
		return nil, fmt.Errorf("hardware: mapping table needs at least one anchor")
	}
	sorted := make([]Anchor, len(anchors))
	copy(sorted, anchors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	xs := make([]float64, len(sorted))
	cx := make([]float64, len(sorted))
	cy := make([]float64, len(sorted))
	pf := make([]float64, len(sorted))
	lf := make([]float64, len(sorted))
	for i, a := range sorted {
		if a.Distance <= 0 {
			return nil, fmt.Errorf("hardware: anchor distance must be positive, got %g", a.Distance)
		}
		if i > 0 && a.Distance == sorted[i-1].Distance {
			return nil, fmt.Errorf("hardware: duplicate anchor distance %g", a.Distance)
		}
		if a.CoeffX <= 0 || a.CoeffY <= 0 || a.PrecisionFactor <= 0 || a.LinearityFactor <= 0 {
			return nil, fmt.Errorf("hardware: anchor factors at distance %g must be positive", a.Distance)
		}
		xs[i], cx[i], cy[i], pf[i], lf[i] = a.Distance, a.CoeffX, a.CoeffY, a.PrecisionFactor, a.LinearityFactor
	}

	t := &Table{
		anchors: sorted,
		minDist: sorted[0].Distance,
		maxDist: sorted[len(sorted)-1].Distance,
	}
	if len(sorted) >= 2 {
		if err := t.coeffX.Fit(xs, cx); err != nil {
			return nil, fmt.Errorf("hardware: fitting x coefficients: %w", err)
		}
		if err := t.coeffY.Fit(xs, cy); err != nil {
			return nil, fmt.Errorf("hardware: fitting y coefficients: %w", err)
		}
		if err := t.precision.Fit(xs, pf); err != nil {
			return nil, fmt.Errorf("hardware: fitting precision factors: %w", err)
		}
		if err := t.linearity.Fit(xs, lf); err != nil {
			return nil, fmt.Errorf("hardware: fitting linearity factors: %w", err)
		}
	}
	return t, nil
}

// Lookup returns the interpolated anchor at the given pixel distance, clamped
// to the table's range.
func (t *Table) Lookup(distance float64) Anchor {
	if distance <= t.minDist || len(t.anchors) == 1 {
		return t.anchors[0]
	}
	if distance >= t.maxDist {
		return t.anchors[len(t.anchors)-1]
	}
	return Anchor{
		Distance:        distance,
		CoeffX:          t.coeffX.Predict(distance),
		CoeffY:          t.coeffY.Predict(distance),
		PrecisionFactor: t.precision.Predict(distance),
		LinearityFactor: t.linearity.Predict(distance),
		Confidence:      t.confidenceAt(distance),
	}
}

// confidenceAt takes the pessimistic confidence of the bracketing anchors.
func (t *Table) confidenceAt(distance float64) float64 {
	i := sort.Search(len(t.anchors), func(i int) bool { return t.anchors[i].Distance >= distance })
	if i == 0 {
		return t.anchors[0].Confidence
	}
	if i >= len(t.anchors) {
		return t.anchors[len(t.anchors)-1].Confidence
	}
	lo, hi := t.anchors[i-1].Confidence, t.anchors[i].Confidence
	if lo < hi {
		return lo
	}
	return hi
}

// Range returns the anchor distance bounds covered by the table.
func (t *Table) Range() (min, max float64) {
	return t.minDist, t.maxDist
}

// CompTable is a sparse distance -> compensation-factor curve, interpolated
// linearly and clamped at its extremes.
type CompTable struct {
	dists   []float64
	factors []float64
	pl      interp.PiecewiseLinear
}

// NewCompTable builds a compensation curve from a sparse map. A nil or empty
// map yields an identity curve.
func NewCompTable(points map[int]float64) (*CompTable, error) {
	if len(points) == 0 {
		return &CompTable{}, nil
	}
	dists := make([]float64, 0, len(points))
	for d := range points {
		if d <= 0 {
			return nil, fmt.Errorf("hardware: compensation distance must be positive, got %d", d)
		}
		dists = append(dists, float64(d))
	}
	sort.Float64s(dists)
	factors := make([]float64, len(dists))
	for i, d := range dists {
		f := points[int(d)]
		if f <= 0 {
			return nil, fmt.Errorf("hardware: compensation factor at %g must be positive", d)
		}
		factors[i] = f
	}
	ct := &CompTable{dists: dists, factors: factors}
	if len(dists) >= 2 {
		if err := ct.pl.Fit(dists, factors); err != nil {
			return nil, fmt.Errorf("hardware: fitting compensation curve: %w", err)
		}
	}
	return ct, nil
}

// Factor returns the compensation factor at the given distance, clamped to
// the curve's extremes. An empty curve returns 1.
func (c *CompTable) Factor(distance float64) float64 {
	if len(c.dists) == 0 {
		return 1.0
	}
	if distance <= c.dists[0] || len(c.dists) == 1 {
		return c.factors[0]
	}
	if distance >= c.dists[len(c.dists)-1] {
		return c.factors[len(c.factors)-1]
	}
	return c.pl.Predict(distance)
}
