package registry

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"
)

// snapshot is the immutable map the registry swaps atomically so that
// Find (many readers, on the listener/dispatcher thread) never
// observes a partially-updated registry while the reloader (one
// writer, its own goroutine) is rescanning. names keeps Find's probe
// order deterministic (sorted by filename) regardless of map
// iteration order.
type snapshot struct {
	actions map[string]*Action // keyed by filename
	mtimes  map[string]time.Time
	names   []string
}

// finalize sorts the filename index. Call once before installing.
func (s *snapshot) finalize() *snapshot {
	s.names = make([]string, 0, len(s.actions))
	for name := range s.actions {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Registry is the directory-backed action registry consumed by the
// Dispatcher. Per-file parse failures are logged and skipped, never
// propagated: one broken action file must not take down the rest.
type Registry struct {
	dir  string
	snap atomic.Pointer[snapshot]

	stop chan struct{}
	done chan struct{}
}

// New creates a registry rooted at dir. Call LoadOnce before using it.
func New(dir string) *Registry {
	r := &Registry{dir: dir}
	r.snap.Store(&snapshot{actions: map[string]*Action{}, mtimes: map[string]time.Time{}})
	return r
}

// LoadOnce reads every regular file in the configured directory,
// parses each as an action record, and installs a fresh snapshot.
// Files that fail to parse are logged and skipped. Calling LoadOnce
// again on an unchanged directory leaves the registry's contents
// equal (by filename -> (keys, command)) to the previous load.
func (r *Registry) LoadOnce() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	next := &snapshot{actions: map[string]*Action{}, mtimes: map[string]time.Time{}}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		info, err := e.Info()
		if err != nil {
			log.Printf("registry: stat %s: %v", path, err)
			continue
		}
		action, err := r.loadFile(path)
		if err != nil {
			log.Printf("registry: %v", err)
			continue
		}
		next.actions[e.Name()] = action
		next.mtimes[e.Name()] = info.ModTime()
	}
	r.snap.Store(next.finalize())
	return nil
}

func (r *Registry) loadFile(path string) (*Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newAction(data)
}

// StartPeriodicReload launches a background goroutine that rescans the
// directory every interval, reloading any file whose modification time
// is newer than the stored one (or that wasn't seen before). Deleted
// files stay registered until the process restarts. Call Stop to end
// the goroutine.
func (r *Registry) StartPeriodicReload(interval time.Duration) {
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.reloadChanged()
			}
		}
	}()
}

// Stop ends the periodic reloader, if running, and waits for it to
// exit.
func (r *Registry) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
}

func (r *Registry) reloadChanged() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		log.Printf("registry: rescan %s: %v", r.dir, err)
		return
	}

	cur := r.snap.Load()
	next := &snapshot{
		actions: make(map[string]*Action, len(cur.actions)),
		mtimes:  make(map[string]time.Time, len(cur.mtimes)),
	}
	for k, v := range cur.actions {
		next.actions[k] = v
		next.mtimes[k] = cur.mtimes[k]
	}

	changed := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Printf("registry: stat %s: %v", e.Name(), err)
			continue
		}
		prev, seen := next.mtimes[e.Name()]
		if seen && !info.ModTime().After(prev) {
			continue
		}
		action, err := r.loadFile(filepath.Join(r.dir, e.Name()))
		if err != nil {
			log.Printf("registry: %v", err)
			continue
		}
		next.actions[e.Name()] = action
		next.mtimes[e.Name()] = info.ModTime()
		changed = true
	}

	if changed {
		r.snap.Store(next.finalize())
	}
}

// Find returns the first action (in filename order) whose any pattern
// matches instruction, along with the opaque match. Safe to call
// concurrently with StartPeriodicReload's background rescans.
func (r *Registry) Find(instruction string) (*Action, *Match, bool) {
	snap := r.snap.Load()
	for _, name := range snap.names {
		if m, ok := snap.actions[name].matches(instruction); ok {
			return snap.actions[name], m, true
		}
	}
	return nil, nil, false
}
