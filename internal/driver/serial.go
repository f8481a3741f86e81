package driver

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
)

// wirePort is the slice of serial.Port the transport actually uses. Tests
// substitute an in-memory implementation through the dial hook.
type wirePort interface {
	io.Writer
	io.Closer
}

// Serial speaks a small ASCII protocol to a microcontroller HID bridge: one
// "M <dx> <dy>\n" frame per relative move. The bridge applies the motion and
// needs no reply, so the transport is write-only.
type Serial struct {
	log  *zap.Logger
	cfg  config.SerialConfig
	dial func() (wirePort, error)
	port wirePort
}

// NewSerial builds an unopened serial transport.
func NewSerial(cfg config.SerialConfig, logger *zap.Logger) *Serial {
	s := &Serial{
		log: logger.Named("serial"),
		cfg: cfg,
	}
	s.dial = s.open
	return s
}

func (s *Serial) open() (wirePort, error) {
	mode := &serial.Mode{
		BaudRate: s.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.cfg.Port, err)
	}
	return port, nil
}

func (s *Serial) Initialize() error {
	if s.cfg.Port == "" {
		return fmt.Errorf("%w: no serial port configured", ErrDriverFailure)
	}
	port, err := s.dial()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDriverFailure, err)
	}
	s.port = port
	s.log.Info("serial bridge connected",
		zap.String("port", s.cfg.Port),
		zap.Int("baud", s.cfg.Baud))
	return nil
}

// MoveRelative frames and writes one move. A failed write triggers a single
// reconnect and resend before the failure is surfaced.
func (s *Serial) MoveRelative(ctx context.Context, dx, dy int) (bool, error) {
	if dx == 0 && dy == 0 {
		return true, nil
	}
	if s.port == nil {
		return false, fmt.Errorf("%w: serial transport not initialized", ErrDriverFailure)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	frame := []byte(fmt.Sprintf("M %d %d\n", dx, dy))
	if _, err := s.port.Write(frame); err != nil {
		s.log.Warn("serial write failed, reconnecting", zap.Error(err))
		if rerr := s.reconnect(); rerr != nil {
			return false, fmt.Errorf("%w: write failed and reconnect failed: %v", ErrDriverFailure, rerr)
		}
		if _, err := s.port.Write(frame); err != nil {
			return false, fmt.Errorf("%w: write failed after reconnect: %v", ErrDriverFailure, err)
		}
	}
	return true, nil
}

func (s *Serial) reconnect() error {
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
	port, err := s.dial()
	if err != nil {
		return err
	}
	s.port = port
	return nil
}

func (s *Serial) Info() Info {
	return Info{Name: "serial", Device: s.cfg.Port, BaseLatency: 2 * time.Millisecond}
}

func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
