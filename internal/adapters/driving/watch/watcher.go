// Package watch reports text files that appear or change in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/tally-cli/internal/logger"
)

// DefaultDebounce coalesces the bursts of writes an editor or copy makes.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch. Subdirectories are not watched.
	Dir string

	// Extension is the file suffix to report, ".txt" when empty.
	Extension string

	// InitialScan reports files already present when watching starts.
	InitialScan bool

	// Debounce delays reports until a file has been quiet this long.
	Debounce time.Duration

	Logger *logger.Logger
}

// Watcher emits base names of matching files after they settle.
type Watcher struct {
	cfg Config
	w   *fsnotify.Watcher
	log *logger.Logger
}

// New starts watching cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("watch directory is required")
	}
	if cfg.Extension == "" {
		cfg.Extension = ".txt"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}
	return &Watcher{cfg: cfg, w: w, log: log.With("dir", cfg.Dir)}, nil
}

// Run emits settled file names on the returned channel until ctx is done.
// The channel is closed when Run stops.
func (w *Watcher) Run(ctx context.Context) <-chan string {
	out := make(chan string, 64)
	go w.loop(ctx, out)
	return out
}

func (w *Watcher) loop(ctx context.Context, out chan<- string) {
	defer close(out)
	defer w.w.Close()

	pending := make(map[string]time.Time)
	if w.cfg.InitialScan {
		for _, name := range w.existing() {
			pending[name] = time.Time{}
		}
	}

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !w.matches(ev.Name) || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			pending[name] = time.Now()
			w.log.Debug("watch.event", "file", name, "op", ev.Op.String())
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch.error", "error", err)
		case now := <-ticker.C:
			for _, name := range settled(pending, now, w.cfg.Debounce) {
				if _, err := os.Stat(filepath.Join(w.cfg.Dir, name)); err != nil {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// settled removes and returns, sorted, the names quiet for at least d.
func settled(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var ready []string
	for name, last := range pending {
		if now.Sub(last) >= d {
			ready = append(ready, name)
			delete(pending, name)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), w.cfg.Extension)
}

func (w *Watcher) existing() []string {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.log.Warn("watch.scan_failed", "error", err)
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && w.matches(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names
}
