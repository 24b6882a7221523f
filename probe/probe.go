// brandcut/probe/probe.go
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Info is what the pipeline needs to know about a local media file.
type Info struct {
	Duration float64
	Width    int
	Height   int
}

// Prober queries the external engine's metadata mode (ffprobe) with a
// bounded timeout.
type Prober struct {
	bin     string
	timeout time.Duration
}

func New(bin string, timeout time.Duration) *Prober {
	return &Prober{bin: bin, timeout: timeout}
}

// Probe runs a single ffprobe JSON call against path.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Info{}, fmt.Errorf("probe timed out after %s", p.timeout)
		}
		return Info{}, fmt.Errorf("ffprobe failed: %w: %s", err, stderr.String())
	}

	return ParseJSON(out)
}

// ParseJSON converts raw ffprobe JSON output into an Info. Exported so
// tests run without a real ffprobe binary.
func ParseJSON(data []byte) (Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	duration, err := strconv.ParseFloat(raw.Format.Duration, 64)
	if err != nil {
		return Info{}, fmt.Errorf("probe output lacks a parseable duration: %q", raw.Format.Duration)
	}
	// A zero duration almost always means the container was misread, not
	// that the file is genuinely empty. Treat it as a probe failure.
	if duration <= 0 {
		return Info{}, fmt.Errorf("probe reported non-positive duration %v", duration)
	}

	info := Info{Duration: duration}
	for _, s := range raw.Streams {
		if s.CodecType == "video" && info.Width == 0 {
			info.Width = s.Width
			info.Height = s.Height
		}
	}
	return info, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}
