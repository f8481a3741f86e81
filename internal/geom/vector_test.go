package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorArithmetic(t *testing.T) {
	a := Vector2D{X: 3, Y: -4}
	b := Vector2D{X: 1, Y: 2}

	assert.Equal(t, Vector2D{X: 4, Y: -2}, a.Add(b))
	assert.Equal(t, Vector2D{X: 2, Y: -6}, a.Sub(b))
	assert.Equal(t, Vector2D{X: 6, Y: -8}, a.Mul(2))
}

func TestMagAndDist(t *testing.T) {
	assert.Equal(t, 5.0, Vector2D{X: 3, Y: 4}.Mag())
	assert.Equal(t, 0.0, Vector2D{}.Mag())
	assert.Equal(t, 5.0, Vector2D{X: 1, Y: 1}.Dist(Vector2D{X: 4, Y: 5}))
}

func TestNormalize(t *testing.T) {
	n := Vector2D{X: 0, Y: -7}.Normalize()
	assert.Equal(t, Vector2D{X: 0, Y: -1}, n)
	assert.InDelta(t, 1.0, Vector2D{X: 13, Y: -7}.Normalize().Mag(), 1e-12)

	// The zero vector has no direction; it maps to itself.
	assert.Equal(t, Vector2D{}, Vector2D{}.Normalize())
}
