package main

import (
	"context"

	"github.com/artpar/envguard/config"
	"github.com/artpar/envguard/core/events"
	"github.com/artpar/envguard/dotenv"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the env loaded and reload it on change",
	Long: `Load the env and watch the env and schema files. Every change is
re-validated; a failing change is logged and the previous env is kept.
SIGHUP forces a reload. Stop with Ctrl-C.

Examples:
  envguard watch
  envguard watch --log-format json`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Watch.Enabled = true
	cfg.Watch.Signals = true

	app, err := loadApp(cmd, cfg)
	if err != nil {
		return err
	}

	previous := app.Env().Raw()
	app.Holder.OnChange(func(env *dotenv.DotEnv) {
		current := env.Raw()
		added, removed, changed := config.Diff(previous, current)
		previous = current
		app.Logger.Info().
			Int("keys", env.Len()).
			Int("added", len(added)).
			Int("removed", len(removed)).
			Int("changed", len(changed)).
			Msg("env valid")
	})
	if err := app.Events.Subscribe(events.EnvReloadFailed, func(_ context.Context, e events.Event) error {
		app.Logger.Warn().Err(e.Err).Msg("env invalid, keeping previous")
		return nil
	}); err != nil {
		return err
	}
	if err := app.Events.Subscribe("cell.*", func(_ context.Context, e events.Event) error {
		app.Logger.Info().Str("key", e.Key).Interface("trigger", e.Data["trigger"]).Msg("value destroyed")
		return nil
	}); err != nil {
		return err
	}

	app.Logger.Info().Int("keys", app.Env().Len()).Msg("env loaded, watching for changes")
	return app.Run(context.Background())
}
