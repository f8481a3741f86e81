package driver

import (
	"context"
	"fmt"
	"sync"
)

// Move is one recorded relative movement.
type Move struct {
	DX int
	DY int
}

// Mock is an in-memory Driver that records every move. Tests script failures
// by queueing errors; each queued error consumes one MoveRelative call.
type Mock struct {
	mu          sync.Mutex
	initialized bool
	closed      bool
	moves       []Move
	failures    []error
}

// NewMock builds an unscripted mock transport.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

func (m *Mock) MoveRelative(_ context.Context, dx, dy int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized || m.closed {
		return false, fmt.Errorf("%w: mock transport not ready", ErrDriverFailure)
	}
	if dx == 0 && dy == 0 {
		return true, nil
	}
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		if err != nil {
			return false, err
		}
	}
	m.moves = append(m.moves, Move{DX: dx, DY: dy})
	return true, nil
}

func (m *Mock) Info() Info {
	return Info{Name: "mock", Device: "memory"}
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Moves returns a copy of everything recorded so far.
func (m *Mock) Moves() []Move {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Move, len(m.moves))
	copy(out, m.moves)
	return out
}

// FailNext queues errors, one per upcoming MoveRelative call.
func (m *Mock) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}
