package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pointctl/internal/config"
)

func testStages() config.StagesConfig {
	return config.StagesConfig{
		TransitionCooldown: 20 * time.Millisecond,
		MinCoarse:          100 * time.Millisecond,
		MaxCoarse:          200 * time.Millisecond,
		MinFine:            50 * time.Millisecond,
		MaxFine:            300 * time.Millisecond,
		CompletingGrace:    50 * time.Millisecond,
		MovementTimeout:    500 * time.Millisecond,
		FastAimTimeout:     300 * time.Millisecond,
	}
}

func testMachine(t *testing.T) (*StateMachine, *manualClock) {
	t.Helper()
	clk := newManualClock()
	m := NewStateMachine(testStages(), zaptest.NewLogger(t))
	m.clock = clk.Now
	return m, clk
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		StateIdle:       "IDLE",
		StateMoving:     "MOVING",
		StateCoarse:     "COARSE",
		StateFine:       "FINE",
		StateCompleting: "COMPLETING",
	}
	for st, s := range want {
		assert.Equal(t, s, st.String())
	}
}

func TestTransitionCooldownSuppressesRapidChanges(t *testing.T) {
	m, clk := testMachine(t)

	require.True(t, m.Transition(StateMoving))
	clk.Advance(5 * time.Millisecond)
	assert.False(t, m.Transition(StateCoarse), "change inside the cooldown must be suppressed")
	assert.Equal(t, StateMoving, m.State())

	clk.Advance(20 * time.Millisecond)
	assert.True(t, m.Transition(StateCoarse))
	assert.Equal(t, StateCoarse, m.State())
}

func TestCoarseCompletion(t *testing.T) {
	m, clk := testMachine(t)
	require.True(t, m.Transition(StateCoarse))

	clk.Advance(50 * time.Millisecond)
	assert.False(t, m.CoarseComplete(true), "minimum dwell not reached")

	clk.Advance(70 * time.Millisecond) // 120ms in stage
	assert.True(t, m.CoarseComplete(true), "empty buffer past minimum dwell completes")
	assert.False(t, m.CoarseComplete(false), "pending buffer holds the stage open")

	clk.Advance(100 * time.Millisecond) // 220ms in stage
	assert.True(t, m.CoarseComplete(false), "stage ceiling forces completion")
	assert.True(t, m.StageTimedOut())
}

func TestFineCompletion(t *testing.T) {
	m, clk := testMachine(t)
	require.True(t, m.Transition(StateFine))

	clk.Advance(30 * time.Millisecond)
	assert.False(t, m.FineComplete(true))

	clk.Advance(30 * time.Millisecond) // 60ms
	assert.True(t, m.FineComplete(true))
	assert.False(t, m.FineComplete(false))

	clk.Advance(250 * time.Millisecond) // 310ms
	assert.True(t, m.FineComplete(false))
}

func TestMovementTimeoutSafetyValve(t *testing.T) {
	m, clk := testMachine(t)
	require.True(t, m.Transition(StateMoving))

	clk.Advance(400 * time.Millisecond)
	assert.False(t, m.MovementTimedOut())

	clk.Advance(200 * time.Millisecond)
	assert.True(t, m.MovementTimedOut())

	m.ForceIdle()
	assert.Equal(t, StateIdle, m.State())
	assert.False(t, m.MovementTimedOut(), "idle lifecycle never times out")
}

func TestCompletingGrace(t *testing.T) {
	m, clk := testMachine(t)
	require.True(t, m.Transition(StateCompleting))

	clk.Advance(30 * time.Millisecond)
	assert.False(t, m.CompletingDone())

	clk.Advance(30 * time.Millisecond)
	assert.True(t, m.CompletingDone())
}

func TestForceIdleBypassesCooldown(t *testing.T) {
	m, clk := testMachine(t)
	require.True(t, m.Transition(StateCoarse))

	clk.Advance(time.Millisecond)
	m.ForceIdle()
	assert.Equal(t, StateIdle, m.State())

	// A fresh lifecycle may start immediately after a forced reset.
	assert.True(t, m.Transition(StateMoving))
}

func TestMovementStartTracksIdleExit(t *testing.T) {
	m, clk := testMachine(t)
	require.True(t, m.Transition(StateCoarse))

	// Staying inside one lifecycle keeps the original movement start, so the
	// global timeout measures the whole movement, not the last stage.
	clk.Advance(250 * time.Millisecond)
	require.True(t, m.Transition(StateFine))
	clk.Advance(300 * time.Millisecond)
	assert.True(t, m.MovementTimedOut())
}
