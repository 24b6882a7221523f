package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	r := New()

	dir, err := r.Acquire(t.TempDir(), "req_")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.True(t, r.Contains(dir))

	require.NoError(t, r.Release(dir))
	assert.False(t, r.Contains(dir))
	assert.NoDirExists(t, dir)

	// Releasing an already gone directory is fine.
	require.NoError(t, r.Release(dir))
}

func TestReleaseAll(t *testing.T) {
	r := New()
	base := t.TempDir()

	var dirs []string
	for i := 0; i < 3; i++ {
		dir, err := r.Acquire(base, "req_")
		require.NoError(t, err)
		dirs = append(dirs, dir)
	}
	require.Equal(t, 3, r.Len())

	r.ReleaseAll()

	assert.Equal(t, 0, r.Len())
	for _, dir := range dirs {
		assert.NoDirExists(t, dir)
	}

	// Idempotent.
	r.ReleaseAll()
	assert.Equal(t, 0, r.Len())
}

func TestReleaseAllKeepsUnregisteredSiblings(t *testing.T) {
	r := New()
	base := t.TempDir()

	tracked, err := r.Acquire(base, "req_")
	require.NoError(t, err)

	untracked := filepath.Join(base, "not_ours")
	require.NoError(t, os.Mkdir(untracked, 0o755))

	r.ReleaseAll()

	assert.NoDirExists(t, tracked)
	assert.DirExists(t, untracked)
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	base := t.TempDir()

	// Workers register/release while ReleaseAll sweeps concurrently; the
	// end state must be an empty registry with nothing left on disk.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				dir, err := r.Acquire(base, "req_")
				if err != nil {
					continue
				}
				_ = r.Release(dir)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.ReleaseAll()
			}
		}()
	}
	wg.Wait()

	r.ReleaseAll()
	assert.Equal(t, 0, r.Len())

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
