package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownProfiles(t *testing.T) {
	for _, id := range Known() {
		p, err := Lookup(id)
		require.NoError(t, err, "profile %q should build", id)
		assert.Equal(t, id, p.ID)
		assert.Greater(t, p.PrecisionRating, 0.0)
		assert.LessOrEqual(t, p.PrecisionRating, 1.0)
		assert.NotNil(t, p.Anchors)
		assert.NotNil(t, p.Compensation)
	}
}

func TestLookupUnknownProfile(t *testing.T) {
	_, err := Lookup("does-not-exist")
	assert.Error(t, err)
}

func TestLookupReturnsIndependentCopies(t *testing.T) {
	a, err := Lookup("highspeed")
	require.NoError(t, err)
	b, err := Lookup("highspeed")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.NotSame(t, a.Anchors, b.Anchors)
}

func TestTableInterpolation(t *testing.T) {
	table, err := NewTable([]Anchor{
		{Distance: 100, CoeffX: 1.0, CoeffY: 2.0, PrecisionFactor: 1.0, LinearityFactor: 1.0, Confidence: 1.0},
		{Distance: 200, CoeffX: 2.0, CoeffY: 4.0, PrecisionFactor: 1.2, LinearityFactor: 0.9, Confidence: 0.8},
	})
	require.NoError(t, err)

	mid := table.Lookup(150)
	assert.InDelta(t, 1.5, mid.CoeffX, 1e-9)
	assert.InDelta(t, 3.0, mid.CoeffY, 1e-9)
	assert.InDelta(t, 1.1, mid.PrecisionFactor, 1e-9)
	assert.InDelta(t, 0.95, mid.LinearityFactor, 1e-9)
	// Interpolated confidence is the pessimistic bracket value.
	assert.InDelta(t, 0.8, mid.Confidence, 1e-9)
}

func TestTableClampsAtExtremes(t *testing.T) {
	table, err := NewTable([]Anchor{
		{Distance: 100, CoeffX: 1.0, CoeffY: 1.0, PrecisionFactor: 1.0, LinearityFactor: 1.0, Confidence: 1.0},
		{Distance: 200, CoeffX: 2.0, CoeffY: 2.0, PrecisionFactor: 1.0, LinearityFactor: 1.0, Confidence: 1.0},
	})
	require.NoError(t, err)

	below := table.Lookup(10)
	assert.InDelta(t, 1.0, below.CoeffX, 1e-9, "queries below the table clamp to the first anchor")

	above := table.Lookup(5000)
	assert.InDelta(t, 2.0, above.CoeffX, 1e-9, "queries above the table clamp to the last anchor, no extrapolation")
}

func TestTableSingleAnchor(t *testing.T) {
	table, err := NewTable([]Anchor{
		{Distance: 50, CoeffX: 0.5, CoeffY: 0.5, PrecisionFactor: 1.0, LinearityFactor: 1.0, Confidence: 1.0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, table.Lookup(1).CoeffX, 1e-9)
	assert.InDelta(t, 0.5, table.Lookup(1000).CoeffX, 1e-9)
}

func TestTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		anchors []Anchor
	}{
		{"empty", nil},
		{"zero distance", []Anchor{{Distance: 0, CoeffX: 1, CoeffY: 1, PrecisionFactor: 1, LinearityFactor: 1}}},
		{"duplicate distance", []Anchor{
			{Distance: 10, CoeffX: 1, CoeffY: 1, PrecisionFactor: 1, LinearityFactor: 1},
			{Distance: 10, CoeffX: 2, CoeffY: 2, PrecisionFactor: 1, LinearityFactor: 1},
		}},
		{"non-positive factor", []Anchor{{Distance: 10, CoeffX: -1, CoeffY: 1, PrecisionFactor: 1, LinearityFactor: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTable(tc.anchors)
			assert.Error(t, err)
		})
	}
}

func TestCompTable(t *testing.T) {
	ct, err := NewCompTable(map[int]float64{100: 1.0, 200: 1.01, 500: 1.03})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, ct.Factor(50), 1e-9, "clamped below")
	assert.InDelta(t, 1.03, ct.Factor(2000), 1e-9, "clamped above")
	assert.InDelta(t, 1.005, ct.Factor(150), 1e-9, "interpolated")
}

func TestCompTableEmptyIsIdentity(t *testing.T) {
	ct, err := NewCompTable(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ct.Factor(123))
}
