package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/calibration"
	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/driver"
	"github.com/xkilldash9x/pointctl/internal/geom"
	"github.com/xkilldash9x/pointctl/internal/mapper"
)

// ErrOutOfBounds rejects a detection whose center falls outside the detector
// window. Nothing moves and nothing is recorded; the caller treats it as a
// no-op cycle.
var ErrOutOfBounds = errors.New("engine: target outside detection window")

// Engine is the facade the detection loop talks to. It owns the state
// machine, the movement buffer, prediction, smoothing, the mapper and the
// driver, and serializes all of them behind one mutex. The mutex exists for
// the narrow cross-goroutine reads (IsMovementActive); the write path is a
// single detection loop.
type Engine struct {
	log *zap.Logger

	mu        sync.Mutex
	cfg       *config.Config
	center    geom.Vector2D
	mapper    *mapper.Mapper
	machine   *StateMachine
	buffer    *Buffer
	predictor *Predictor
	smoother  *Smoother
	speed     *speedScaler
	driver    driver.Driver
	cal       *calibration.System
	clock     func() time.Time

	fastAim  bool
	aimStart time.Time

	lastCommand  time.Time
	haveOutcome  bool
	lastIntended geom.Vector2D
	lastDelta    calibration.DeviceDelta
	lastClass    Class
}

// New wires an engine from its already-built parts. The calibration system
// may be nil when calibration is disabled.
func New(cfg *config.Config, m *mapper.Mapper, drv driver.Driver, cal *calibration.System, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("engine")
	e := &Engine{
		log:       log,
		cfg:       cfg,
		center:    geom.Vector2D{X: float64(cfg.Screen.Width) / 2, Y: float64(cfg.Screen.Height) / 2},
		mapper:    m,
		machine:   NewStateMachine(cfg.Stages, log),
		buffer:    NewBuffer(cfg, log),
		predictor: NewPredictor(cfg),
		smoother:  NewSmoother(),
		speed:     newSpeedScaler(cfg),
		driver:    drv,
		cal:       cal,
		clock:     time.Now,
	}
	if cal != nil {
		m.AttachCorrections(cal)
	}
	return e, nil
}

// ProcessTarget runs one detection cycle against the given target. Errors are
// no-ops from the caller's perspective: nothing moved, try again next cycle.
func (e *Engine) ProcessTarget(ctx context.Context, t TargetDescriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()

	if t.Center.X < 0 || t.Center.Y < 0 ||
		t.Center.X > float64(e.cfg.Screen.Width) || t.Center.Y > float64(e.cfg.Screen.Height) {
		return fmt.Errorf("%w: (%.1f,%.1f)", ErrOutOfBounds, t.Center.X, t.Center.Y)
	}

	if e.machine.MovementTimedOut() {
		e.log.Warn("movement timed out, resetting lifecycle",
			zap.Stringer("state", e.machine.State()))
		e.resetLifecycleLocked()
	}
	if e.fastAim && now.Sub(e.aimStart) >= e.cfg.Stages.FastAimTimeout {
		e.stopFastAimLocked(ctx)
	}

	e.recordOutcomeLocked(t)

	target := t.Center
	if !e.cfg.Prediction.Disable {
		target = e.predictor.Predict(target, now)
	}
	offset := target.Sub(e.center)
	distance := offset.Mag()
	precision := t.Class == ClassPrecision

	// Stage progression is polled here, never on a timer. A stage hands over
	// only after its buffered movement has gone out.
	if e.machine.CoarseComplete(e.buffer.Empty()) {
		e.flushLocked(ctx)
		e.machine.Transition(StateFine)
	} else if e.machine.FineComplete(e.buffer.Empty()) {
		e.flushLocked(ctx)
		e.machine.Transition(StateCompleting)
	}
	if e.machine.CompletingDone() {
		e.resetLifecycleLocked()
	}

	if distance <= e.cfg.Movement.CompletionThreshold {
		switch e.machine.State() {
		case StateMoving, StateCoarse, StateFine:
			e.flushLocked(ctx)
			e.machine.Transition(StateCompleting)
		}
		return nil
	}

	aim := target
	kind := kindDefault
	switch {
	case precision && distance <= e.cfg.Movement.PrecisionThreshold:
		kind = kindPrecision
		e.enterMovingLocked()
	case distance <= e.cfg.Movement.DirectThreshold:
		kind = kindDirect
		e.enterMovingLocked()
	case precision && distance > e.cfg.Movement.CoarseThreshold &&
		e.machine.State() != StateCompleting:
		// A detection arriving inside the settling grace window must not
		// restart the coarse lifecycle; it falls through to a plain move.
		kind = kindStage
		if e.machine.State() == StateFine {
			// Fine stage closes on the real target.
		} else {
			if e.machine.State() != StateCoarse {
				e.machine.Transition(StateCoarse)
			}
			aim = e.center.Add(offset.Mul(e.cfg.Movement.CoarseFraction))
		}
		e.startFastAimLocked(now)
	default:
		e.enterMovingLocked()
	}

	smoothed := e.smoother.Smooth(aim.Sub(e.center), kind)
	ex, ey, err := e.mapper.ComputeExact(e.center, e.center.Add(smoothed))
	if err != nil {
		e.log.Warn("move rejected", zap.Float64("distance", distance), zap.Error(err))
		return err
	}
	mult := e.speed.multiplier(kind, e.machine.State(), distance)
	ex *= mult
	ey *= mult

	mag := math.Hypot(ex, ey)
	if mag == 0 {
		e.pollBufferLocked(ctx, precision)
		return nil
	}

	if mag < e.cfg.Movement.Threshold*e.bufferFractionLocked(precision) {
		e.buffer.Add(ex, ey)
		e.pollBufferLocked(ctx, precision)
		return nil
	}

	dx := int(math.Round(ex))
	dy := int(math.Round(ey))
	if err := e.sendLocked(ctx, dx, dy); err != nil {
		return err
	}
	e.buffer.MarkMove()
	e.rememberMoveLocked(t.Class, aim, dx, dy)
	return nil
}

// HandleNoTarget cleans up when a detection cycle finds nothing: remaining
// buffered movement goes out first, then every piece of lifecycle state is
// cleared.
func (e *Engine) HandleNoTarget(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buffer.ShouldFlush(false, e.fastAimExpiredLocked()) {
		e.flushLocked(ctx)
	}
	e.buffer.Clear()
	e.resetLifecycleLocked()
	e.predictor.Reset()
	e.haveOutcome = false
}

// IsMovementActive reports whether a movement is in flight. It is the one
// engine method intended for callers outside the detection loop.
func (e *Engine) IsMovementActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.State() != StateIdle {
		if e.machine.MovementTimedOut() {
			e.machine.ForceIdle()
			return false
		}
		return true
	}
	if e.fastAim {
		return true
	}
	if !e.buffer.Empty() {
		return true
	}
	// Block detection only for the first half of the command cooldown.
	if !e.lastCommand.IsZero() && e.clock().Sub(e.lastCommand) < e.cfg.Stages.TransitionCooldown/2 {
		return true
	}
	return false
}

// ApplyConfig re-derives every cached constant from a new snapshot. A snapshot
// that fails validation is rejected and the old one stays live.
func (e *Engine) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: rejecting config snapshot: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mapper.Reconfigure(cfg); err != nil {
		return err
	}
	e.machine.Reconfigure(cfg.Stages)
	e.buffer.Reconfigure(cfg)
	e.predictor.Reconfigure(cfg)
	e.speed.Reconfigure(cfg)
	e.cfg = cfg
	e.center = geom.Vector2D{X: float64(cfg.Screen.Width) / 2, Y: float64(cfg.Screen.Height) / 2}
	e.log.Info("configuration snapshot applied")
	return nil
}

// Close flushes pending movement, persists calibration, and releases the
// driver.
func (e *Engine) Close() error {
	e.mu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e.flushLocked(ctx)
	e.mu.Unlock()

	if e.cal != nil {
		if err := e.cal.SaveNow(); err != nil {
			e.log.Warn("final calibration save failed", zap.Error(err))
		}
	}
	return e.driver.Close()
}

func (e *Engine) enterMovingLocked() {
	if e.machine.State() == StateIdle {
		e.machine.Transition(StateMoving)
	}
}

func (e *Engine) startFastAimLocked(now time.Time) {
	if !e.fastAim {
		e.fastAim = true
		e.aimStart = now
		e.log.Debug("fast aim engaged")
	}
}

func (e *Engine) fastAimExpiredLocked() bool {
	return e.fastAim && e.clock().Sub(e.aimStart) >= e.cfg.Stages.FastAimTimeout
}

func (e *Engine) stopFastAimLocked(ctx context.Context) {
	e.flushLocked(ctx)
	e.fastAim = false
	e.resetLifecycleLocked()
}

func (e *Engine) resetLifecycleLocked() {
	e.machine.ForceIdle()
	e.smoother.Reset()
	e.fastAim = false
}

// pollBufferLocked is the per-cycle buffer and deadline poll that runs even
// when this cycle produced no direct move.
func (e *Engine) pollBufferLocked(ctx context.Context, precision bool) {
	if e.buffer.ShouldFlush(precision, e.fastAimExpiredLocked()) {
		e.flushLocked(ctx)
	}
	if e.machine.StageTimedOut() {
		switch e.machine.State() {
		case StateCoarse:
			e.flushLocked(ctx)
			e.machine.Transition(StateFine)
		case StateFine:
			e.flushLocked(ctx)
			e.machine.Transition(StateCompleting)
		}
	}
}

func (e *Engine) flushLocked(ctx context.Context) {
	if e.buffer.Empty() {
		return
	}
	dx, dy := e.buffer.Take()
	if dx == 0 && dy == 0 {
		return
	}
	if err := e.sendLocked(ctx, dx, dy); err != nil {
		e.log.Warn("buffered move failed", zap.Error(err))
	}
}

// sendLocked issues one driver command with a single retry. (0,0) never
// reaches the transport.
func (e *Engine) sendLocked(ctx context.Context, dx, dy int) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	ok, err := e.driver.MoveRelative(ctx, dx, dy)
	if err == nil && ok {
		e.lastCommand = e.clock()
		return nil
	}
	e.log.Warn("movement command failed, retrying once",
		zap.Int("dx", dx), zap.Int("dy", dy), zap.Error(err))
	ok, err = e.driver.MoveRelative(ctx, dx, dy)
	if err == nil && ok {
		e.lastCommand = e.clock()
		return nil
	}
	if err == nil {
		err = driver.ErrDriverFailure
	}
	return fmt.Errorf("engine: movement command failed after retry: %w", err)
}

func (e *Engine) bufferFractionLocked(precision bool) float64 {
	st := e.machine.State()
	switch {
	case precision:
		return e.cfg.Buffer.PrecisionBufferFraction
	case st == StateCoarse || st == StateFine:
		return e.cfg.Buffer.StageBufferFraction
	case e.fastAim:
		return e.cfg.Buffer.FastAimBufferFraction
	default:
		return e.cfg.Buffer.DefaultBufferFraction
	}
}

func (e *Engine) rememberMoveLocked(class Class, intended geom.Vector2D, dx, dy int) {
	if e.cal == nil || !e.cfg.Calibration.Enabled {
		return
	}
	e.haveOutcome = true
	e.lastIntended = intended
	e.lastDelta = calibration.DeviceDelta{DX: dx, DY: dy}
	e.lastClass = class
}

// recordOutcomeLocked closes the loop on the previous cycle's move: if the
// same target class is still in view, the shift in its apparent offset tells
// us where the pointer actually landed relative to where it was sent.
func (e *Engine) recordOutcomeLocked(t TargetDescriptor) {
	if !e.haveOutcome || e.cal == nil || t.Class != e.lastClass {
		return
	}
	e.haveOutcome = false

	newOff := t.Center.Sub(e.center)
	intendedOff := e.lastIntended.Sub(e.center)
	// A jump bigger than the intended move itself means the detection is a
	// different target; measuring against it would poison the tables.
	if newOff.Dist(intendedOff) > intendedOff.Mag()*2 {
		return
	}
	actual := e.center.Add(intendedOff.Sub(newOff))
	e.cal.RecordResult(e.lastIntended, actual, e.lastDelta, calibration.Meta{Class: t.Class.String()})
}
