// Package driver is the abstract movement transport port. The engine speaks
// to exactly one Driver; which physical transport backs it is decided once at
// startup by the probe cascade.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
)

// ErrDriverFailure wraps transport-level write failures.
var ErrDriverFailure = errors.New("driver: movement command failed")

// Info describes the active transport.
type Info struct {
	Name        string
	Device      string
	BaseLatency time.Duration
}

// Driver is the movement transport port. MoveRelative returns whether the
// command was accepted; a (0,0) delta is a success no-op and implementations
// must not forward it to hardware.
type Driver interface {
	Initialize() error
	MoveRelative(ctx context.Context, dx, dy int) (bool, error)
	Info() Info
	Close() error
}

// Probe tries the configured transports in priority order and returns the
// first one that initializes. Transport "auto" means serial first, then mock.
func Probe(cfg *config.Config, logger *zap.Logger) (Driver, error) {
	log := logger.Named("driver")

	var candidates []Driver
	switch cfg.Driver.Transport {
	case "serial":
		candidates = []Driver{NewSerial(cfg.Driver.Serial, logger)}
	case "mock":
		candidates = []Driver{NewMock()}
	case "auto":
		candidates = []Driver{NewSerial(cfg.Driver.Serial, logger), NewMock()}
	default:
		return nil, fmt.Errorf("driver: unknown transport %q", cfg.Driver.Transport)
	}

	var errs []error
	for _, d := range candidates {
		if err := d.Initialize(); err != nil {
			log.Warn("transport unavailable",
				zap.String("transport", d.Info().Name),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		log.Info("transport selected",
			zap.String("transport", d.Info().Name),
			zap.String("device", d.Info().Device))
		return d, nil
	}
	return nil, fmt.Errorf("driver: no transport available: %w", errors.Join(errs...))
}
