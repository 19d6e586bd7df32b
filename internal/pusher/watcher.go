package pusher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures a Watcher.
type WatchConfig struct {
	Dir      string        // Outbox to watch
	SentDir  string        // Pushed files are moved here; empty leaves them in place
	Target   string        // Identity every file is pushed to
	Debounce time.Duration // Quiet period after the last write before pushing
}

// WatchStats contains runtime statistics.
type WatchStats struct {
	Pushed   int64
	Failed   int64
	Moved    int64
	LastPush time.Time
}

// Watcher pushes files that appear in a directory.
type Watcher struct {
	cfg    WatchConfig
	client *Client
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stats   WatchStats
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. SentDir is created if set.
func NewWatcher(cfg WatchConfig, client *Client, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch dir is required")
	}
	if cfg.Target == "" {
		return nil, errors.New("watch target is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SentDir != "" {
		if err := os.MkdirAll(cfg.SentDir, 0o755); err != nil {
			return nil, fmt.Errorf("create sent dir: %w", err)
		}
	}

	return &Watcher{
		cfg:     cfg,
		client:  client,
		logger:  logger.With("target", cfg.Target, "dir", cfg.Dir),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx ends. Files already in the outbox are pushed
// first when SentDir is set, since pushed files leave the outbox.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}

	if w.cfg.SentDir != "" {
		w.sweep(ctx)
	}

	w.logger.Info("watching outbox")

	defer w.wg.Wait()
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if skipName(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Stats returns current statistics.
func (w *Watcher) Stats() WatchStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("failed to list outbox", "error", err)
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !skipName(e.Name()) {
			w.schedule(ctx, filepath.Join(w.cfg.Dir, e.Name()))
		}
	}
}

// schedule (re)starts the per-file debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			w.wg.Done()
		}
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		w.pushFile(ctx, path)
	})
	w.pending[path] = timer
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) pushFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// Removed or renamed away before the debounce fired.
		return
	}

	if _, err := w.client.Push(ctx, w.cfg.Target, path); err != nil {
		w.mu.Lock()
		w.stats.Failed++
		w.mu.Unlock()

		if errors.Is(err, ErrTargetNotFound) {
			w.logger.Warn("target offline, file left in outbox", "file", filepath.Base(path))
		} else if ctx.Err() == nil {
			w.logger.Error("push failed", "file", filepath.Base(path), "error", err)
		}
		return
	}

	w.mu.Lock()
	w.stats.Pushed++
	w.stats.LastPush = time.Now()
	w.mu.Unlock()

	if w.cfg.SentDir == "" {
		return
	}
	dest, err := moveAside(path, w.cfg.SentDir)
	if err != nil {
		w.logger.Error("failed to move pushed file", "file", filepath.Base(path), "error", err)
		return
	}

	w.mu.Lock()
	w.stats.Moved++
	w.mu.Unlock()
	w.logger.Debug("moved pushed file", "from", path, "to", dest)
}

// moveAside renames path into dir, adding a timestamp on name collisions.
func moveAside(path, dir string) (string, error) {
	name := filepath.Base(path)
	dest := filepath.Join(dir, name)
	if _, err := os.Lstat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(dir, fmt.Sprintf("%s.%d%s", strings.TrimSuffix(name, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// skipName ignores hidden files and editors' or downloaders' partial files.
func skipName(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".part", ".tmp", ".swp", ".crdownload":
		return true
	}
	return false
}
