package config

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"syscall"

	"github.com/artpar/envguard/core/schema"
	"github.com/artpar/envguard/dotenv"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by Reload after Stop.
var ErrStopped = errors.New("holder stopped")

// Holder provides thread-safe access to the applied env with hot reload
// support. Each reload builds a fresh DotEnv and swaps it in whole.
type Holder struct {
	mu       sync.RWMutex
	cfg      *Config
	env      *dotenv.DotEnv
	paths    []string
	opts     []schema.Option
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*dotenv.DotEnv)
	onError  []func(error)

	reloadMu sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the env described by cfg. opts are passed to every
// schema the holder builds.
func NewHolder(cfg *Config, logger zerolog.Logger, opts ...schema.Option) (*Holder, error) {
	env, err := cfg.LoadEnv(logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var paths []string
	for _, p := range []string{cfg.Env.File, cfg.Env.Schema} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		paths = append(paths, abs)
	}

	h := &Holder{
		cfg:    cfg,
		env:    env,
		paths:  paths,
		opts:   opts,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	return h, nil
}

// Get returns the current env (thread-safe).
func (h *Holder) Get() *dotenv.DotEnv {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.env
}

// Config returns the configuration the holder was built with.
func (h *Holder) Config() *Config {
	return h.cfg
}

// Reload re-reads the env and schema files and re-applies them.
// Returns error if loading fails (keeps old env).
func (h *Holder) Reload() error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	h.logger.Info().Str("file", h.cfg.Env.File).Msg("reloading env")

	newEnv, err := h.cfg.LoadEnv(h.logger, h.opts...)
	if err != nil {
		h.logger.Error().Err(err).Msg("env reload failed, keeping old env")
		err = fmt.Errorf("reload env: %w", err)
		for _, fn := range h.errorListeners() {
			fn(err)
		}
		return err
	}

	h.mu.Lock()
	if h.stopped() {
		h.mu.Unlock()
		newEnv.Close()
		return fmt.Errorf("reload env: %w", ErrStopped)
	}
	oldEnv := h.env
	h.env = newEnv
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()

	oldEnv.Close()
	h.logChanges(oldEnv, newEnv)

	// Notify listeners
	for _, fn := range listeners {
		fn(newEnv)
	}

	h.logger.Info().Int("keys", newEnv.Len()).Msg("env reloaded successfully")
	return nil
}

// OnChange registers a callback to be called after a successful reload.
func (h *Holder) OnChange(fn func(*dotenv.DotEnv)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnError registers a callback to be called when a reload fails.
func (h *Holder) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = append(h.onError, fn)
}

func (h *Holder) errorListeners() []func(error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.onError)
}

// WatchFile starts watching the env and schema files for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch directories (more reliable for editors that do atomic saves)
	dirs := make(map[string]bool)
	for _, p := range h.paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch directory: %w", err)
		}
	}

	go h.watchLoop()

	h.logger.Info().Strs("paths", h.paths).Msg("watching env files for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading env")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload env")
}

// Stop stops watching for file changes and signals, and stops the current
// env's destruct timers.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
		// A Reload that swaps after this point sees stopCh closed and
		// discards its env; one that swapped before is closed here.
		h.Get().Close()
	})
}

func (h *Holder) stopped() bool {
	select {
	case <-h.stopCh:
		return true
	default:
		return false
	}
}

func (h *Holder) watched(name string) bool {
	name = filepath.Clean(name)
	for _, p := range h.paths {
		if p == name {
			return true
		}
	}
	return false
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if !h.watched(event.Name) {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("env file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// logChanges logs key names that were added, removed or changed. Values
// are never logged.
func (h *Holder) logChanges(old, new *dotenv.DotEnv) {
	added, removed, changed := Diff(old.Raw(), new.Raw())
	if len(added)+len(removed)+len(changed) == 0 {
		h.logger.Debug().Msg("env unchanged")
		return
	}
	h.logger.Info().
		Strs("added", added).
		Strs("removed", removed).
		Strs("changed", changed).
		Msg("env keys changed")
}

// Diff compares two raw configurations by key. Results are sorted.
func Diff(old, new map[string]string) (added, removed, changed []string) {
	for k, v := range new {
		ov, ok := old[k]
		switch {
		case !ok:
			added = append(added, k)
		case ov != v:
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)
	return added, removed, changed
}
