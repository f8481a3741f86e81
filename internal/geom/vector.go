package geom

import "math"

// Vector2D is a 2D point or displacement in detector-window pixel space.
type Vector2D struct {
	X float64
	Y float64
}

// Add returns the component-wise sum of v and o.
func (v Vector2D) Add(o Vector2D) Vector2D {
	return Vector2D{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the component-wise difference of v and o.
func (v Vector2D) Sub(o Vector2D) Vector2D {
	return Vector2D{X: v.X - o.X, Y: v.Y - o.Y}
}

// Mul returns v scaled by s.
func (v Vector2D) Mul(s float64) Vector2D {
	return Vector2D{X: v.X * s, Y: v.Y * s}
}

// Mag returns the Euclidean length of v.
func (v Vector2D) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the Euclidean distance between v and o.
func (v Vector2D) Dist(o Vector2D) float64 {
	return v.Sub(o).Mag()
}

// Normalize returns the unit vector in the direction of v.
// The zero vector normalizes to itself.
func (v Vector2D) Normalize() Vector2D {
	m := v.Mag()
	if m == 0 {
		return Vector2D{}
	}
	return Vector2D{X: v.X / m, Y: v.Y / m}
}
