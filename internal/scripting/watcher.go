package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/system"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher watches the script directories and signals when a .lua file
// changed. It never touches the engine itself; ReloadSystem applies the
// reload on the game goroutine.
type Watcher struct {
	fs       *fsnotify.Watcher
	changed  chan struct{}
	debounce time.Duration
	log      *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher watches dir and its lib/ and actors/ subdirectories.
func NewWatcher(dir string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create script watcher: %w", err)
	}
	for _, d := range []string{dir, filepath.Join(dir, "lib"), filepath.Join(dir, "actors")} {
		if _, err := os.Stat(d); err != nil {
			continue
		}
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", d, err)
		}
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w := &Watcher{
		fs:       fsw,
		changed:  make(chan struct{}, 1),
		debounce: debounce,
		log:      log,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changed delivers one value after a burst of script changes settles.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

func (w *Watcher) Close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".lua" {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("script changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changed <- struct{}{}:
			default: // a reload is already pending
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("script watcher error", zap.Error(err))
		}
	}
}

// ReloadSystem reloads the engine at the start of a tick when the watcher
// has seen changes.
type ReloadSystem struct {
	engine  *Engine
	watcher *Watcher
}

func NewReloadSystem(e *Engine, w *Watcher) *ReloadSystem {
	return &ReloadSystem{engine: e, watcher: w}
}

func (s *ReloadSystem) Phase() system.Phase { return system.PhaseInput }

func (s *ReloadSystem) Update(_ time.Duration) {
	select {
	case <-s.watcher.Changed():
		_ = s.engine.Reload()
	default:
	}
}
