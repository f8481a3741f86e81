// Package hardware holds the static per-transport movement characteristics:
// latency, precision and linearity ratings, axis bias, and the empirical
// distance tables the coordinate mapper interpolates over.
package hardware

import (
	"fmt"
	"sort"
	"time"
)

// Profile describes one movement transport's measured behavior. A process has
// exactly one active profile; the calibration system may nudge its tables
// slowly but never replaces them wholesale.
type Profile struct {
	ID              string
	BaseLatency     time.Duration
	PrecisionRating float64 // (0,1], 1 is perfect
	LinearityRating float64 // (0,1], 1 is perfect
	AxisBiasX       float64
	AxisBiasY       float64
	Compensation    *CompTable
	Anchors         *Table
}

// defaultAnchors is the shared measured device-units-per-pixel curve. The
// per-profile precision/linearity ratings and compensation curves layer the
// transport-specific deviation on top of it.
var defaultAnchors = []Anchor{
	{Distance: 10, CoeffX: 0.1105, CoeffY: 0.1105, PrecisionFactor: 1.000, LinearityFactor: 0.999, Confidence: 1.0},
	{Distance: 25, CoeffX: 0.1107, CoeffY: 0.1107, PrecisionFactor: 1.000, LinearityFactor: 0.999, Confidence: 1.0},
	{Distance: 50, CoeffX: 0.1108, CoeffY: 0.1108, PrecisionFactor: 1.000, LinearityFactor: 0.998, Confidence: 1.0},
	{Distance: 75, CoeffX: 0.1109, CoeffY: 0.1109, PrecisionFactor: 1.001, LinearityFactor: 0.998, Confidence: 1.0},
	{Distance: 100, CoeffX: 0.1110, CoeffY: 0.1110, PrecisionFactor: 1.002, LinearityFactor: 0.997, Confidence: 1.0},
	{Distance: 150, CoeffX: 0.1112, CoeffY: 0.1112, PrecisionFactor: 1.003, LinearityFactor: 0.996, Confidence: 1.0},
	{Distance: 200, CoeffX: 0.1115, CoeffY: 0.1115, PrecisionFactor: 1.005, LinearityFactor: 0.995, Confidence: 1.0},
	{Distance: 300, CoeffX: 0.1118, CoeffY: 0.1118, PrecisionFactor: 1.008, LinearityFactor: 0.993, Confidence: 1.0},
	{Distance: 400, CoeffX: 0.1122, CoeffY: 0.1122, PrecisionFactor: 1.012, LinearityFactor: 0.990, Confidence: 1.0},
	{Distance: 500, CoeffX: 0.1125, CoeffY: 0.1125, PrecisionFactor: 1.015, LinearityFactor: 0.988, Confidence: 1.0},
	{Distance: 750, CoeffX: 0.1132, CoeffY: 0.1132, PrecisionFactor: 1.025, LinearityFactor: 0.982, Confidence: 1.0},
	{Distance: 1000, CoeffX: 0.1140, CoeffY: 0.1140, PrecisionFactor: 1.035, LinearityFactor: 0.975, Confidence: 1.0},
	{Distance: 1250, CoeffX: 0.1148, CoeffY: 0.1148, PrecisionFactor: 1.048, LinearityFactor: 0.968, Confidence: 1.0},
	{Distance: 1500, CoeffX: 0.1155, CoeffY: 0.1155, PrecisionFactor: 1.065, LinearityFactor: 0.960, Confidence: 1.0},
	{Distance: 1750, CoeffX: 0.1162, CoeffY: 0.1162, PrecisionFactor: 1.085, LinearityFactor: 0.952, Confidence: 0.9},
	{Distance: 2000, CoeffX: 0.1170, CoeffY: 0.1170, PrecisionFactor: 1.108, LinearityFactor: 0.945, Confidence: 0.8},
}

type profileSpec struct {
	baseLatency     time.Duration
	precisionRating float64
	linearityRating float64
	axisBiasX       float64
	axisBiasY       float64
	compensation    map[int]float64
}

// builtinSpecs holds the measured constants per supported transport family.
var builtinSpecs = map[string]profileSpec{
	// Direct low-level transport; near-ideal response.
	"highspeed": {
		baseLatency:     2 * time.Millisecond,
		precisionRating: 0.99,
		linearityRating: 0.998,
		axisBiasX:       1.0,
		axisBiasY:       1.0,
		compensation:    map[int]float64{100: 1.0, 200: 1.001, 500: 1.003, 1000: 1.008, 1500: 1.015},
	},
	// Vendor software bridge; slight axis asymmetry and added latency.
	"vendor-bridge": {
		baseLatency:     8 * time.Millisecond,
		precisionRating: 0.96,
		linearityRating: 0.992,
		axisBiasX:       1.02,
		axisBiasY:       0.98,
		compensation:    map[int]float64{100: 1.0, 200: 1.005, 500: 1.012, 1000: 1.025, 1500: 1.045},
	},
	// Older HID driver path; the least linear of the set.
	"legacy-hid": {
		baseLatency:     12 * time.Millisecond,
		precisionRating: 0.94,
		linearityRating: 0.988,
		axisBiasX:       1.05,
		axisBiasY:       0.95,
		compensation:    map[int]float64{100: 1.0, 200: 1.008, 500: 1.018, 1000: 1.035, 1500: 1.065},
	},
	// Ideal transport for tests and dry runs.
	"mock": {
		baseLatency:     0,
		precisionRating: 1.0,
		linearityRating: 1.0,
		axisBiasX:       1.0,
		axisBiasY:       1.0,
	},
}

// Lookup builds a fresh Profile for the named transport family. Each call
// returns an independent copy so calibration adjustments never leak between
// engine instances.
func Lookup(id string) (*Profile, error) {
	spec, ok := builtinSpecs[id]
	if !ok {
		return nil, fmt.Errorf("hardware: unknown profile %q (known: %v)", id, Known())
	}
	anchors, err := NewTable(defaultAnchors)
	if err != nil {
		return nil, fmt.Errorf("hardware: building anchor table for %q: %w", id, err)
	}
	comp, err := NewCompTable(spec.compensation)
	if err != nil {
		return nil, fmt.Errorf("hardware: building compensation curve for %q: %w", id, err)
	}
	return &Profile{
		ID:              id,
		BaseLatency:     spec.baseLatency,
		PrecisionRating: spec.precisionRating,
		LinearityRating: spec.linearityRating,
		AxisBiasX:       spec.axisBiasX,
		AxisBiasY:       spec.axisBiasY,
		Compensation:    comp,
		Anchors:         anchors,
	}, nil
}

// Known lists the available profile IDs in stable order.
func Known() []string {
	ids := make([]string, 0, len(builtinSpecs))
	for id := range builtinSpecs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
