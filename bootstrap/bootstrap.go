// Package bootstrap wires all dependencies for the envguard CLI.
// Configuration comes from an optional YAML file, overridden by ENVGUARD_*
// environment variables and then by command-line flags.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/envguard/adapters/clock"
	"github.com/artpar/envguard/adapters/idgen"
	"github.com/artpar/envguard/adapters/metrics"
	"github.com/artpar/envguard/config"
	"github.com/artpar/envguard/core/destruct"
	"github.com/artpar/envguard/core/events"
	"github.com/artpar/envguard/core/schema"
	"github.com/artpar/envguard/dotenv"
	"github.com/artpar/envguard/internal/logging"
	"github.com/artpar/envguard/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Holder   *config.Holder
	Events   *events.Bus
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
}

// Options provides optional configuration for application initialization.
type Options struct {
	// Config is used as-is when set; otherwise ConfigPath is loaded with
	// environment fallback.
	Config     *config.Config
	ConfigPath string

	// LogOutput receives log lines (default: stderr).
	LogOutput io.Writer

	Clock ports.Clock
	IDs   ports.IDGenerator
}

// New loads configuration, sets up logging and metrics, and applies the
// schema to the env file.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.LoadWithFallback(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, opts.LogOutput)
	if err != nil {
		return nil, err
	}

	a := &App{
		Logger: logger,
		Config: cfg,
		Events: events.NewBus(logger),
	}

	schemaOpts := []schema.Option{
		schema.WithClock(clock.Or(opts.Clock)),
		schema.WithIDGenerator(idgen.Or(opts.IDs)),
		schema.WithDestroyHook(a.cellDestroyed),
	}
	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		schemaOpts = append(schemaOpts, schema.WithObserver(a.Metrics))
		if err := a.Metrics.Subscribe(a.Events); err != nil {
			return nil, err
		}
	}

	holder, err := config.NewHolder(cfg, logger, schemaOpts...)
	if err != nil {
		return nil, err
	}
	a.Holder = holder

	holder.OnChange(func(env *dotenv.DotEnv) {
		a.Events.Publish(context.Background(), events.Event{
			Name: events.EnvReloaded,
			Data: map[string]any{"keys": env.Len()},
		})
	})
	holder.OnError(func(err error) {
		a.Events.Publish(context.Background(), events.Event{
			Name: events.EnvReloadFailed,
			Err:  err,
		})
	})
	a.Events.Publish(context.Background(), events.Event{
		Name: events.EnvLoaded,
		Data: map[string]any{"keys": holder.Get().Len()},
	})

	logger.Debug().
		Str("env", cfg.Env.File).
		Str("schema", cfg.Env.Schema).
		Int("keys", holder.Get().Len()).
		Msg("env loaded")

	return a, nil
}

// Env returns the current env.
func (a *App) Env() *dotenv.DotEnv {
	return a.Holder.Get()
}

// Run starts the configured watchers and blocks until ctx is done or the
// process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Watch.Enabled {
		if err := a.Holder.WatchFile(); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
	}
	if a.Config.Watch.Signals {
		a.Holder.WatchSignals()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-ctx.Done():
		a.Logger.Info().Msg("context done, shutting down")
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops watchers and destruct timers.
func (a *App) Shutdown() error {
	if a.Holder != nil {
		a.Holder.Stop()
	}
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) cellDestroyed(c *destruct.Cell, trigger destruct.Trigger) {
	a.Events.Publish(context.Background(), events.Event{
		Name: events.CellDestroyed,
		Key:  c.Name(),
		Data: map[string]any{"trigger": string(trigger)},
	})
}

// WriteMetrics writes the collected metrics in the Prometheus text format.
// It is a no-op when metrics are disabled.
func (a *App) WriteMetrics(w io.Writer) error {
	if a.Registry == nil {
		return nil
	}
	return metrics.WriteText(w, a.Registry)
}
