package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
)

// State is the movement lifecycle phase.
type State int

const (
	// StateIdle means no movement is in flight.
	StateIdle State = iota
	// StateMoving is a general single-shot movement.
	StateMoving
	// StateCoarse is the first phase of two-stage aiming, rushing to the
	// intermediate point.
	StateCoarse
	// StateFine is the second phase, closing the residual offset.
	StateFine
	// StateCompleting is the brief settling window after the last command.
	StateCompleting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateMoving:
		return "MOVING"
	case StateCoarse:
		return "COARSE"
	case StateFine:
		return "FINE"
	case StateCompleting:
		return "COMPLETING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateMachine owns the lifecycle state and its deadlines. Deadlines are
// polled by the engine once per detection cycle; the machine never runs
// timers of its own.
type StateMachine struct {
	log   *zap.Logger
	cfg   config.StagesConfig
	clock func() time.Time

	state          State
	movementStart  time.Time
	stageStart     time.Time
	lastTransition time.Time
}

// NewStateMachine starts in StateIdle.
func NewStateMachine(cfg config.StagesConfig, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		log:   logger.Named("state"),
		cfg:   cfg,
		clock: time.Now,
		state: StateIdle,
	}
}

// State returns the current phase.
func (m *StateMachine) State() State {
	return m.state
}

// Transition attempts a state change. A change inside the cooldown window is
// suppressed and reports false; the caller retries on a later cycle.
func (m *StateMachine) Transition(to State) bool {
	now := m.clock()
	if !m.lastTransition.IsZero() && now.Sub(m.lastTransition) < m.cfg.TransitionCooldown {
		return false
	}
	if to == m.state {
		m.lastTransition = now
		return true
	}

	old := m.state
	m.state = to
	m.lastTransition = now
	m.stageStart = now
	if old == StateIdle && to != StateIdle {
		m.movementStart = now
	}
	if to == StateCoarse || to == StateFine {
		m.log.Debug("movement state changed",
			zap.Stringer("from", old),
			zap.Stringer("to", to))
	}
	return true
}

// ForceIdle clears the lifecycle unconditionally, bypassing the cooldown.
// Used on no-target cleanup and timeout recovery.
func (m *StateMachine) ForceIdle() {
	m.state = StateIdle
	m.movementStart = time.Time{}
	m.stageStart = time.Time{}
	m.lastTransition = time.Time{}
}

// StageElapsed is the time spent in the current stage.
func (m *StateMachine) StageElapsed() time.Duration {
	if m.stageStart.IsZero() {
		return 0
	}
	return m.clock().Sub(m.stageStart)
}

// CoarseComplete reports whether the coarse stage may hand over to fine: the
// minimum dwell has passed and either the buffer drained or the stage hit its
// ceiling.
func (m *StateMachine) CoarseComplete(bufferEmpty bool) bool {
	if m.state != StateCoarse {
		return false
	}
	elapsed := m.StageElapsed()
	if elapsed < m.cfg.MinCoarse {
		return false
	}
	return elapsed >= m.cfg.MaxCoarse || bufferEmpty
}

// FineComplete mirrors CoarseComplete for the fine stage.
func (m *StateMachine) FineComplete(bufferEmpty bool) bool {
	if m.state != StateFine {
		return false
	}
	elapsed := m.StageElapsed()
	if elapsed < m.cfg.MinFine {
		return false
	}
	return elapsed >= m.cfg.MaxFine || bufferEmpty
}

// StageTimedOut reports whether the current stage exceeded its hard ceiling.
func (m *StateMachine) StageTimedOut() bool {
	switch m.state {
	case StateCoarse:
		return m.StageElapsed() >= m.cfg.MaxCoarse
	case StateFine:
		return m.StageElapsed() >= m.cfg.MaxFine
	default:
		return false
	}
}

// CompletingDone reports whether the settling window after the final command
// has elapsed.
func (m *StateMachine) CompletingDone() bool {
	return m.state == StateCompleting && m.StageElapsed() >= m.cfg.CompletingGrace
}

// MovementTimedOut is the global safety valve: any non-idle lifecycle older
// than the movement timeout is considered stuck.
func (m *StateMachine) MovementTimedOut() bool {
	if m.state == StateIdle || m.movementStart.IsZero() {
		return false
	}
	return m.clock().Sub(m.movementStart) > m.cfg.MovementTimeout
}

// Reconfigure swaps in new stage bounds on hot reload. The running lifecycle
// keeps its timestamps.
func (m *StateMachine) Reconfigure(cfg config.StagesConfig) {
	m.cfg = cfg
}
