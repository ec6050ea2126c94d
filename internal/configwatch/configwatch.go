// Package configwatch watches schedules.yaml for edits and turns the diff
// between the old and new schedule sets into dispatcher control messages,
// mirroring the teacher's daemon.ConfigWatcher (debounced fsnotify events ->
// a reload) but retargeted at the dispatcher's Add/Update/Remove control
// channel instead of a full daemon config swap.
package configwatch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inful/stitchcron/internal/config"
	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/schedule"
)

// Target receives the control messages a reload produces. *dispatch.Dispatcher
// satisfies this.
type Target interface {
	Add(sched schedule.Schedule)
	Update(sched schedule.Schedule)
	Remove(id string)
}

// Watcher monitors a schedules.yaml file and reconciles dispatcher state
// with it on every debounced change.
type Watcher struct {
	configPath   string
	target       Target
	tz           oracle.TimezoneOracle
	logger       *slog.Logger
	debounceTime time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	current map[string]schedule.Schedule

	stopChan chan struct{}
	reload   chan struct{}
	done     chan struct{}
}

// New builds a Watcher over configPath, not yet watching. Call Start to
// begin, after an initial Load has primed the dispatcher.
func New(configPath string, target Target, tz oracle.TimezoneOracle, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		configPath:   absPath,
		target:       target,
		tz:           tz,
		logger:       logger,
		debounceTime: 2 * time.Second,
		watcher:      fsw,
		current:      make(map[string]schedule.Schedule),
		stopChan:     make(chan struct{}),
		reload:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}, nil
}

// LoadInitial reads configPath once and feeds every schedule to the target
// as an Add, establishing the baseline the watcher will later diff against.
func (w *Watcher) LoadInitial() error {
	cfg, err := config.Load(w.configPath)
	if err != nil {
		return err
	}
	w.reconcile(cfg)
	return nil
}

// Start begins watching the config file's directory for changes.
func (w *Watcher) Start() error {
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	w.logger.Info("starting config watcher", "config_path", w.configPath)

	go w.watchLoop()
	go w.reloadLoop()
	return nil
}

// Stop tears down the watcher's goroutines and underlying fsnotify handle.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing file watcher", "error", err)
	}
	<-w.done
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	configFile := filepath.Base(w.configPath)

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				w.triggerReload()
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				w.logger.Warn("config file removed", "file", event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reloadLoop() {
	var timer *time.Timer
	for {
		select {
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.reload:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, w.performReload)
		}
	}
}

func (w *Watcher) triggerReload() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

func (w *Watcher) performReload() {
	w.logger.Info("reloading configuration", "config_path", w.configPath)
	cfg, err := config.Load(w.configPath)
	if err != nil {
		w.logger.Error("failed to reload configuration", "error", err)
		return
	}
	w.reconcile(cfg)
}

// reconcile translates cfg's schedule descriptors and diffs them against
// the previously-known set, emitting Add for new ids, Update for every id
// that was already known (whether or not its descriptor changed), and
// Remove for ids no longer present. Descriptors that fail
// translation are logged and skipped rather than aborting the whole reload.
func (w *Watcher) reconcile(cfg *config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[string]schedule.Schedule, len(cfg.Schedules))
	for _, sd := range cfg.Schedules {
		sched, err := config.ToSchedule(sd, w.tz)
		if err != nil {
			w.logger.Error("skipping schedule with invalid descriptor", "schedule_id", sd.ID, "error", err)
			continue
		}
		next[sched.ID] = sched
	}

	for id, sched := range next {
		if _, existed := w.current[id]; existed {
			w.target.Update(sched)
		} else {
			w.target.Add(sched)
		}
	}
	for id := range w.current {
		if _, stillPresent := next[id]; !stillPresent {
			w.target.Remove(id)
		}
	}

	w.current = next
}
