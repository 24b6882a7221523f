package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowBinary writes a stand-in engine binary that blocks far longer than
// any test timeout.
func slowBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stand-in shell script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "slow")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 30\n"), 0o755))
	return path
}

func TestProbeTimeout(t *testing.T) {
	p := New(slowBinary(t), 50*time.Millisecond)

	_, err := p.Probe(context.Background(), "/nonexistent.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestParseJSON(t *testing.T) {
	t.Run("valid output", func(t *testing.T) {
		data := []byte(`{
			"streams": [
				{"codec_type": "audio", "channels": 2},
				{"codec_type": "video", "width": 1920, "height": 1080}
			],
			"format": {"duration": "150.250000"}
		}`)

		info, err := ParseJSON(data)
		require.NoError(t, err)
		assert.InDelta(t, 150.25, info.Duration, 1e-9)
		assert.Equal(t, 1920, info.Width)
		assert.Equal(t, 1080, info.Height)
	})

	t.Run("first video stream wins", func(t *testing.T) {
		data := []byte(`{
			"streams": [
				{"codec_type": "video", "width": 1280, "height": 720},
				{"codec_type": "video", "width": 640, "height": 360}
			],
			"format": {"duration": "10"}
		}`)

		info, err := ParseJSON(data)
		require.NoError(t, err)
		assert.Equal(t, 1280, info.Width)
	})

	t.Run("missing duration", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"streams": [], "format": {}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duration")
	})

	t.Run("zero duration is a failure", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"streams": [], "format": {"duration": "0.000000"}}`))
		require.Error(t, err)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := ParseJSON([]byte(`not json`))
		require.Error(t, err)
	})
}
