package engine

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
)

// Buffer accumulates jitter-sized device deltas so they are sent as one move
// instead of a stream of twitches. Flush decisions are polled; the buffer
// never wakes up on its own.
type Buffer struct {
	log   *zap.Logger
	clock func() time.Time

	window         time.Duration
	flushAt        float64
	precisionFloor float64

	x        float64
	y        float64
	lastMove time.Time
}

// NewBuffer derives the flush policy from the snapshot.
func NewBuffer(cfg *config.Config, logger *zap.Logger) *Buffer {
	b := &Buffer{
		log:   logger.Named("buffer"),
		clock: time.Now,
	}
	b.Reconfigure(cfg)
	b.lastMove = b.clock()
	return b
}

// Reconfigure re-derives the flush policy on hot reload. Accumulated deltas
// are kept.
func (b *Buffer) Reconfigure(cfg *config.Config) {
	b.window = cfg.Buffer.Window
	b.flushAt = cfg.Movement.Threshold * cfg.Buffer.FlushFraction
	b.precisionFloor = cfg.Buffer.PrecisionFloor
}

// Add accumulates one unrounded device delta.
func (b *Buffer) Add(dx, dy float64) {
	b.x += dx
	b.y += dy
}

// Empty reports whether nothing is pending.
func (b *Buffer) Empty() bool {
	return b.x == 0 && b.y == 0
}

// Distance is the magnitude of the pending delta in device units.
func (b *Buffer) Distance() float64 {
	return math.Hypot(b.x, b.y)
}

// ShouldFlush decides whether the pending delta goes out this cycle:
// the accumulated distance crossed the flush threshold, the buffer window
// elapsed, fast-aim mode expired, or a precision target crossed its lower
// floor.
func (b *Buffer) ShouldFlush(precision, fastAimExpired bool) bool {
	if b.Empty() {
		return false
	}
	d := b.Distance()
	if d >= b.flushAt {
		return true
	}
	if b.clock().Sub(b.lastMove) >= b.window {
		return true
	}
	if fastAimExpired {
		return true
	}
	if precision && d >= b.precisionFloor {
		return true
	}
	return false
}

// Take rounds the pending delta to integers, clears the buffer, and stamps
// the move time. A delta that rounds to (0,0) is reported as such and must
// not reach the driver.
func (b *Buffer) Take() (int, int) {
	dx := int(math.Round(b.x))
	dy := int(math.Round(b.y))
	b.x, b.y = 0, 0
	b.lastMove = b.clock()
	return dx, dy
}

// MarkMove stamps a direct (unbuffered) move so the window timer restarts.
func (b *Buffer) MarkMove() {
	b.lastMove = b.clock()
}

// Clear drops any pending delta without sending it.
func (b *Buffer) Clear() {
	if !b.Empty() {
		b.log.Debug("movement buffer cleared",
			zap.Float64("dx", b.x),
			zap.Float64("dy", b.y))
	}
	b.x, b.y = 0, 0
}
