package config_test

import (
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/artpar/envguard/config"
	"github.com/artpar/envguard/core/schema"
	"github.com/artpar/envguard/dotenv"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	cfg, _, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Value("PORT") != float64(8080) {
		t.Errorf("PORT = %#v, want float64(8080)", got.Value("PORT"))
	}
	if h.Config() != cfg {
		t.Error("Config() should return the holder's config")
	}
}

func TestNewHolder_InvalidEnv(t *testing.T) {
	cfg, _, _ := writeEnv(t, "PORT=eighty\n")

	if _, err := config.NewHolder(cfg, zerolog.Nop()); !errors.Is(err, schema.ErrCast) {
		t.Errorf("NewHolder error = %v, want ErrCast", err)
	}
}

func TestHolder_Reload(t *testing.T) {
	cfg, envPath, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(envPath, []byte("PORT=9090\n"), 0644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get().Value("PORT"); got != float64(9090) {
		t.Errorf("reloaded PORT = %#v, want float64(9090)", got)
	}
}

func TestHolder_ReloadSchemaChange(t *testing.T) {
	cfg, _, schemaPath := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(schemaPath, []byte("PORT: string\n"), 0644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got := h.Get().Value("PORT"); got != "8080" {
		t.Errorf("PORT = %#v, want string after schema change", got)
	}
}

func TestHolder_OnChange(t *testing.T) {
	cfg, envPath, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var called bool
	var received *dotenv.DotEnv

	h.OnChange(func(env *dotenv.DotEnv) {
		mu.Lock()
		called = true
		received = env
		mu.Unlock()
	})

	if err := os.WriteFile(envPath, []byte("PORT=4000\n"), 0644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Error("OnChange callback was not called")
	}
	if received == nil {
		t.Error("received nil env in callback")
	} else if received.Value("PORT") != float64(4000) {
		t.Errorf("callback received PORT = %v, want 4000", received.Value("PORT"))
	}
}

func TestHolder_ReloadInvalidEnv(t *testing.T) {
	cfg, envPath, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var reloadErr error
	h.OnError(func(err error) { reloadErr = err })

	if err := os.WriteFile(envPath, []byte("PORT=not-a-number\n"), 0644); err != nil {
		t.Fatalf("write invalid env: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid env")
	}
	if !errors.Is(reloadErr, schema.ErrCast) {
		t.Errorf("OnError received %v, want ErrCast", reloadErr)
	}

	// Old env should still be valid
	if got := h.Get().Value("PORT"); got != float64(8080) {
		t.Errorf("should keep old env, got PORT = %#v", got)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	cfg, envPath, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan struct{}, 8)
	h.OnChange(func(*dotenv.DotEnv) {
		changed <- struct{}{}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(envPath, []byte("PORT=5000\n"), 0644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger reload")
	}

	// Editors may emit several events; wait for the final content.
	deadline := time.Now().Add(2 * time.Second)
	for h.Get().Value("PORT") != float64(5000) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.Get().Value("PORT"); got != float64(5000) {
		t.Errorf("after file watch, PORT = %#v, want 5000", got)
	}
}

func TestHolder_StopIdempotent(t *testing.T) {
	cfg, _, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestHolder_ReloadAfterStop(t *testing.T) {
	cfg, envPath, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	before := h.Get()

	called := false
	h.OnChange(func(*dotenv.DotEnv) { called = true })
	h.Stop()

	if err := os.WriteFile(envPath, []byte("PORT=9090\n"), 0644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := h.Reload(); !errors.Is(err, config.ErrStopped) {
		t.Fatalf("Reload after Stop error = %v, want ErrStopped", err)
	}
	if h.Get() != before {
		t.Error("Reload after Stop should not swap the env")
	}
	if called {
		t.Error("OnChange should not run after Stop")
	}
}

func TestHolder_StopDuringReload(t *testing.T) {
	for i := 0; i < 20; i++ {
		cfg, _, _ := writeEnv(t, "PORT=8080\n")
		h, err := config.NewHolder(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewHolder error: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := h.Reload(); err != nil && !errors.Is(err, config.ErrStopped) {
				t.Errorf("Reload error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			h.Stop()
		}()
		wg.Wait()

		if err := h.Reload(); !errors.Is(err, config.ErrStopped) {
			t.Errorf("Reload after Stop error = %v, want ErrStopped", err)
		}
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	cfg, _, _ := writeEnv(t, "PORT=8080\n")

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Start many readers
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	// Concurrent reloads
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestDiff(t *testing.T) {
	old := map[string]string{"A": "1", "B": "2", "C": "3"}
	new := map[string]string{"A": "1", "B": "20", "D": "4"}

	added, removed, changed := config.Diff(old, new)
	if !reflect.DeepEqual(added, []string{"D"}) {
		t.Errorf("added = %v, want [D]", added)
	}
	if !reflect.DeepEqual(removed, []string{"C"}) {
		t.Errorf("removed = %v, want [C]", removed)
	}
	if !reflect.DeepEqual(changed, []string{"B"}) {
		t.Errorf("changed = %v, want [B]", changed)
	}
}

// Helpers

// writeEnv writes an env file and a schema declaring PORT as a number.
func writeEnv(t *testing.T, content string) (*config.Config, string, string) {
	t.Helper()
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", content)
	schemaPath := writeFile(t, dir, "env.schema.yaml", "PORT: number\n")
	cfg := &config.Config{Env: config.EnvConfig{File: envPath, Schema: schemaPath}}
	return cfg, envPath, schemaPath
}
