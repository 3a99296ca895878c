package bootstrap_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/envguard/adapters/clock"
	"github.com/artpar/envguard/adapters/idgen"
	"github.com/artpar/envguard/bootstrap"
	"github.com/artpar/envguard/config"
	"github.com/artpar/envguard/core/events"
)

func TestNew(t *testing.T) {
	cfg := writeEnv(t, "PORT=8080\nTOKEN=abc\n")

	var logs bytes.Buffer
	app, err := bootstrap.New(bootstrap.Options{Config: cfg, LogOutput: &logs})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer app.Shutdown()

	if app.Env().Value("PORT") != float64(8080) {
		t.Errorf("PORT = %#v, want float64(8080)", app.Env().Value("PORT"))
	}
	if app.Metrics != nil || app.Registry != nil {
		t.Error("metrics should be disabled by default")
	}

	var buf bytes.Buffer
	if err := app.WriteMetrics(&buf); err != nil || buf.Len() != 0 {
		t.Errorf("WriteMetrics with metrics disabled = %q, %v", buf.String(), err)
	}
}

func TestNew_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "A=1\n")
	cfgPath := writeFile(t, dir, "envguard.yaml", "env:\n  file: "+envPath+"\nlogging:\n  format: json\n")

	app, err := bootstrap.New(bootstrap.Options{ConfigPath: cfgPath, LogOutput: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer app.Shutdown()

	if app.Config.Logging.Format != "json" {
		t.Errorf("Logging.Format = %s, want json", app.Config.Logging.Format)
	}
	if app.Env().Value("A") != "1" {
		t.Errorf("A = %#v, want \"1\"", app.Env().Value("A"))
	}
}

func TestNew_Metrics(t *testing.T) {
	cfg := writeEnv(t, "PORT=8080\nTOKEN=abc\n")
	cfg.Metrics.Enabled = true

	fake := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	app, err := bootstrap.New(bootstrap.Options{
		Config:    cfg,
		LogOutput: &bytes.Buffer{},
		Clock:     fake,
		IDs:       idgen.NewSequential("cell-"),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer app.Shutdown()

	fake.Advance(time.Hour)
	if _, err := app.Env().Get("TOKEN"); err == nil {
		t.Fatal("TOKEN should be destroyed")
	}

	if err := app.Holder.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	var buf bytes.Buffer
	if err := app.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`envguard_fields_applied_total{type="number"} 2`,
		`envguard_cells_destroyed_total{trigger="read"} 1`,
		`envguard_reloads_total 1`,
		`envguard_keys 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q:\n%s", want, out)
		}
	}
}

func TestNew_Events(t *testing.T) {
	cfg := writeEnv(t, "PORT=8080\nTOKEN=abc\n")

	fake := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	app, err := bootstrap.New(bootstrap.Options{
		Config:    cfg,
		LogOutput: &bytes.Buffer{},
		Clock:     fake,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer app.Shutdown()

	var got []events.Event
	if err := app.Events.Subscribe("*", func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	fake.Advance(time.Hour)
	_, _ = app.Env().Get("TOKEN")
	if err := app.Holder.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(got), got)
	}
	if got[0].Name != events.CellDestroyed || got[0].Key != "TOKEN" || got[0].Data["trigger"] != "read" {
		t.Errorf("event[0] = %+v, want cell.destroyed for TOKEN by read", got[0])
	}
	if got[1].Name != events.EnvReloaded || got[1].Data["keys"] != 2 {
		t.Errorf("event[1] = %+v, want env.reloaded with 2 keys", got[1])
	}
}

func TestNew_InvalidEnv(t *testing.T) {
	cfg := writeEnv(t, "PORT=http\nTOKEN=abc\n")
	if _, err := bootstrap.New(bootstrap.Options{Config: cfg, LogOutput: &bytes.Buffer{}}); err == nil {
		t.Error("expected error for invalid env")
	}
}

func TestNew_InvalidLogLevel(t *testing.T) {
	cfg := writeEnv(t, "PORT=1\nTOKEN=abc\n")
	cfg.Logging.Level = "loud"
	if _, err := bootstrap.New(bootstrap.Options{Config: cfg}); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	cfg := writeEnv(t, "PORT=8080\nTOKEN=abc\n")
	cfg.Watch.Enabled = true

	app, err := bootstrap.New(bootstrap.Options{Config: cfg, LogOutput: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// Helpers

func writeEnv(t *testing.T, content string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", content)
	schemaPath := writeFile(t, dir, "env.schema.yaml", "PORT: number\nTOKEN: { type: string, destruct: 1h }\n")
	return &config.Config{
		Env:     config.EnvConfig{File: envPath, Schema: schemaPath},
		Logging: config.LoggingConfig{Level: "debug", Format: "json"},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
