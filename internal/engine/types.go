// Package engine coordinates the movement lifecycle: it takes target
// detections, decides between direct and staged aiming, buffers jitter-sized
// deltas, and drives the transport. One engine instance assumes a single
// detection-loop writer.
package engine

import (
	"fmt"

	"github.com/xkilldash9x/pointctl/internal/geom"
)

// Class partitions targets by the accuracy the movement policy owes them.
type Class int

const (
	// ClassGeneric targets get the standard movement treatment.
	ClassGeneric Class = iota
	// ClassPrecision targets get the high-accuracy policy: direct single-shot
	// moves up close, the coarse/fine two-stage lifecycle at range.
	ClassPrecision
)

func (c Class) String() string {
	switch c {
	case ClassGeneric:
		return "generic"
	case ClassPrecision:
		return "precision"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ParseClass maps the wire form of a target class back to the enum.
func ParseClass(s string) (Class, error) {
	switch s {
	case "generic":
		return ClassGeneric, nil
	case "precision":
		return ClassPrecision, nil
	default:
		return ClassGeneric, fmt.Errorf("engine: unknown target class %q", s)
	}
}

// TargetDescriptor is one detection handed to the engine. Center is in
// absolute detection-window pixels.
type TargetDescriptor struct {
	Center geom.Vector2D
	Width  float64
	Height float64
	Class  Class
}
