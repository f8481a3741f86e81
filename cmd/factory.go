package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/calibration"
	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/driver"
	"github.com/xkilldash9x/pointctl/internal/engine"
	"github.com/xkilldash9x/pointctl/internal/hardware"
	"github.com/xkilldash9x/pointctl/internal/mapper"
)

// components holds the wired engine and everything it owns that needs
// explicit teardown.
type components struct {
	Engine      *engine.Engine
	Driver      driver.Driver
	Calibration *calibration.System
	store       *calibration.Store
}

// buildComponents wires the full movement stack from one configuration
// snapshot. Calibration persistence problems degrade to running without a
// store; every other failure is fatal to startup.
func buildComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	profile, err := hardware.Lookup(cfg.Hardware.Profile)
	if err != nil {
		return nil, err
	}
	logger.Info("hardware profile active",
		zap.String("profile", profile.ID),
		zap.Duration("base_latency", profile.BaseLatency))

	m, err := mapper.New(cfg, profile, logger)
	if err != nil {
		return nil, fmt.Errorf("building mapper: %w", err)
	}

	drv, err := driver.Probe(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		store *calibration.Store
		cal   *calibration.System
	)
	if cfg.Calibration.Enabled {
		store, err = calibration.OpenStore(cfg.Calibration.Path, logger)
		if err != nil {
			logger.Warn("calibration store unavailable, corrections will not persist", zap.Error(err))
			store = nil
		}
		cal = calibration.New(cfg, store, logger)
	}

	eng, err := engine.New(cfg, m, drv, cal, logger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		drv.Close()
		return nil, err
	}

	return &components{Engine: eng, Driver: drv, Calibration: cal, store: store}, nil
}

// Close tears the stack down in reverse order. The engine close flushes
// pending movement and persists calibration before the store goes away.
func (c *components) Close() error {
	err := c.Engine.Close()
	if c.store != nil {
		if serr := c.store.Close(); err == nil {
			err = serr
		}
	}
	return err
}
