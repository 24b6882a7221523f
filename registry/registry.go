// brandcut/registry/registry.go
package registry

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Registry tracks every working directory currently owned by an in-flight
// request so they can be reclaimed on process shutdown or via the manual
// cleanup endpoint. Safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	dirs map[string]struct{}
}

func New() *Registry {
	return &Registry{dirs: make(map[string]struct{})}
}

// Acquire creates a uniquely named directory under base (the OS temp dir
// when base is empty) and registers it in one step.
func (r *Registry) Acquire(base, prefix string) (string, error) {
	dir, err := os.MkdirTemp(base, prefix)
	if err != nil {
		return "", fmt.Errorf("could not create working directory: %w", err)
	}
	r.Register(dir)
	return dir, nil
}

func (r *Registry) Register(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs[dir] = struct{}{}
}

func (r *Registry) Unregister(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dirs, dir)
}

// Release unregisters dir and deletes it from disk. Deleting an
// already-removed directory is not an error.
func (r *Registry) Release(dir string) error {
	r.Unregister(dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("could not remove working directory %s: %w", dir, err)
	}
	return nil
}

// ReleaseAll deletes every currently registered directory, best effort.
// It snapshots the set under the lock and deletes with the lock released,
// so a signal handler can call it while workers are blocked on slow I/O
// without deadlocking. A directory another worker is mid-deleting is fine:
// os.RemoveAll on a missing path succeeds.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	snapshot := make([]string, 0, len(r.dirs))
	for dir := range r.dirs {
		snapshot = append(snapshot, dir)
	}
	r.dirs = make(map[string]struct{})
	r.mu.Unlock()

	for _, dir := range snapshot {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Warning: could not clean up %s: %v", dir, err)
			continue
		}
		log.Printf("Cleaned up working directory: %s", dir)
	}
}

// Len reports the number of registered directories.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirs)
}

// Contains reports whether dir is currently registered.
func (r *Registry) Contains(dir string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.dirs[dir]
	return ok
}
