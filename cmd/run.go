package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/engine"
	"github.com/xkilldash9x/pointctl/internal/geom"
	"github.com/xkilldash9x/pointctl/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the movement engine against a detection feed on stdin.",
	Long: `Run wires the full movement stack and consumes a detection feed from
stdin, one detection per line:

    <center-x> <center-y> <width> <height> <class>

where class is "precision" or "generic". A blank line means the detector
found nothing this cycle. The config file is watched; edits apply live.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		comps, err := buildComponents(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := comps.Close(); cerr != nil {
				logger.Warn("shutdown incomplete", zap.Error(cerr))
			}
		}()

		watchConfig(comps.Engine, logger)

		return feedLoop(cmd.Context(), comps.Engine, cmd.InOrStdin(), logger)
	},
}

// watchConfig applies edited config files to the running engine. A snapshot
// that fails to load or validate is logged and dropped; the engine keeps the
// last good one.
func watchConfig(eng *engine.Engine, logger *zap.Logger) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		snap, err := config.Load(viper.GetViper())
		if err != nil {
			logger.Error("config reload failed to parse", zap.Error(err))
			return
		}
		if err := eng.ApplyConfig(snap); err != nil {
			logger.Error("config reload rejected", zap.Error(err))
			return
		}
		config.Set(snap)
		logger.Info("configuration reloaded")
	})
	viper.WatchConfig()
}

// feedLoop pumps detections from the reader into the engine until the feed
// ends or the context is canceled.
func feedLoop(ctx context.Context, eng *engine.Engine, in io.Reader, logger *zap.Logger) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("detection feed stopped", zap.Error(ctx.Err()))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				eng.HandleNoTarget(ctx)
				continue
			}
			target, err := parseTarget(line)
			if err != nil {
				logger.Warn("dropping malformed detection", zap.String("line", line), zap.Error(err))
				continue
			}
			if err := eng.ProcessTarget(ctx, target); err != nil {
				logger.Warn("detection cycle failed", zap.Error(err))
			}
		}
	}
}

// parseTarget decodes one "x y w h class" detection line.
func parseTarget(line string) (engine.TargetDescriptor, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return engine.TargetDescriptor{}, fmt.Errorf("want 5 fields, got %d", len(fields))
	}
	nums := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return engine.TargetDescriptor{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		nums[i] = v
	}
	class, err := engine.ParseClass(fields[4])
	if err != nil {
		return engine.TargetDescriptor{}, err
	}
	return engine.TargetDescriptor{
		Center: geom.Vector2D{X: nums[0], Y: nums[1]},
		Width:  nums[2],
		Height: nums[3],
		Class:  class,
	}, nil
}
