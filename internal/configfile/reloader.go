package configfile

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/resources"
)

// debounceWindow absorbs the burst of multiple write events a single save
// can generate from an editor or a deploy tool.
const debounceWindow = 200 * time.Millisecond

// OnChange is called with a freshly loaded configuration every time the
// watched file changes and settles. It never receives a partially written
// file: Reloader only calls it after a successful Load.
type OnChange func(resources.Config)

// Reloader watches a YAML config file and pushes freshly parsed
// configuration to an OnChange callback. It never mutates shared state in
// place; callers own what they do with each pushed Config.
type Reloader struct {
	path     string
	log      *logging.Logger
	onChange OnChange

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewReloader starts watching path and returns a Reloader. It does not
// call onChange for the initial load; callers should Load once themselves
// before constructing a Reloader.
func NewReloader(path string, log *logging.Logger, onChange OnChange) (*Reloader, error) {
	if log == nil {
		log = logging.NewDefault()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	r := &Reloader{
		path:     path,
		log:      log,
		onChange: onChange,
		watcher:  watcher,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.watch()
	return r, nil
}

func (r *Reloader) watch() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				r.scheduleReload()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("config watch error", zap.Error(err))
		}
	}
}

func (r *Reloader) scheduleReload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(debounceWindow, r.reload)
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		r.log.Warn("config reload failed, keeping previous configuration", zap.Error(err))
		return
	}
	r.onChange(cfg)
}

// Close stops watching and waits for the watch goroutine to exit.
// Idempotent.
func (r *Reloader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()

	close(r.stop)
	err := r.watcher.Close()
	<-r.done
	return err
}
