// brandcut/transform/transformer.go
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"brandcut/config"
	"brandcut/planner"
)

// diagnosticTailBytes bounds how much engine output is carried into a
// failure result.
const diagnosticTailBytes = 2048

// SegmentResult is the outcome of transforming one segment: either a
// produced artifact or a failure reason, never both.
type SegmentResult struct {
	Index         int     `json:"index"`
	Start         float64 `json:"startSeconds"`
	Span          float64 `json:"spanSeconds"`
	ArtifactPath  string  `json:"-"`
	ArtifactSize  int64   `json:"artifactSizeBytes,omitempty"`
	FailureReason string  `json:"failureReason,omitempty"`
}

func (r SegmentResult) OK() bool { return r.FailureReason == "" }

// MarshalJSON adds the explicit outcome discriminator callers key on.
func (r SegmentResult) MarshalJSON() ([]byte, error) {
	type alias SegmentResult
	outcome := "success"
	if !r.OK() {
		outcome = "failure"
	}
	return json.Marshal(struct {
		alias
		Outcome string `json:"outcome"`
	}{alias(r), outcome})
}

// Transformer builds per-segment branding compositions and invokes the
// external engine once per segment with a bounded timeout.
type Transformer struct {
	cfg       *config.Config
	layout    Layout
	extraArgs []string
}

func New(cfg *config.Config) (*Transformer, error) {
	if _, err := exec.LookPath(cfg.FFmpegBin); err != nil {
		return nil, fmt.Errorf("transcoding engine not found or not in PATH: %s", cfg.FFmpegBin)
	}

	extra, err := SplitExtraArgs(cfg.FFExtraArgs)
	if err != nil {
		return nil, err
	}

	kind := EndCreditKind(cfg.EndCreditKind)
	if kind != EndCreditImage && kind != EndCreditVideo {
		return nil, fmt.Errorf("unknown end credit kind %q", cfg.EndCreditKind)
	}

	return &Transformer{
		cfg:       cfg,
		layout:    DefaultLayout(cfg.CanvasWidth, cfg.CanvasHeight),
		extraArgs: extra,
	}, nil
}

// Transform trims srcPath to the segment's window, applies the branding
// composition and writes seg.OutputName into outDir. Engine failure or
// timeout yields a failure result carrying the diagnostic tail; it never
// returns an error, so the caller's loop continues with the next segment.
func (t *Transformer) Transform(ctx context.Context, srcPath string, seg planner.Segment, title, outDir string) SegmentResult {
	res := SegmentResult{Index: seg.Index, Start: seg.Start, Span: seg.Span}
	outPath := filepath.Join(outDir, seg.OutputName)

	ctx, cancel := context.WithTimeout(ctx, t.cfg.TransformTimeout)
	defer cancel()

	args := t.buildArgs(srcPath, seg, title, outPath)
	cmd := exec.CommandContext(ctx, t.cfg.FFmpegBin, args...)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	log.Printf("Transforming segment %d [%.2f +%.2fs] -> %s", seg.Index, seg.Start, seg.Span, outPath)

	err := cmd.Run()
	if err != nil {
		// Drop the partial output so the publisher never sees it.
		os.Remove(outPath)
		if ctx.Err() == context.DeadlineExceeded {
			res.FailureReason = fmt.Sprintf("engine timed out after %s: %s", t.cfg.TransformTimeout, tail(outputBuf.Bytes()))
		} else {
			res.FailureReason = fmt.Sprintf("engine failed: %v: %s", err, tail(outputBuf.Bytes()))
		}
		return res
	}

	info, err := os.Stat(outPath)
	if err != nil {
		res.FailureReason = fmt.Sprintf("engine exited cleanly but produced no output: %v", err)
		return res
	}

	res.ArtifactPath = outPath
	res.ArtifactSize = info.Size()
	return res
}

func (t *Transformer) buildArgs(srcPath string, seg planner.Segment, title, outPath string) []string {
	args := make([]string, 0, 32)
	args = append(args, "-hide_banner", "-nostdin", "-y")

	// Input 0: the source, trimmed to the segment window.
	args = append(args,
		"-ss", formatSeconds(seg.Start),
		"-t", formatSeconds(seg.Span),
		"-i", srcPath,
	)

	// Input 1: the end credit.
	if EndCreditKind(t.cfg.EndCreditKind) == EndCreditImage {
		args = append(args,
			"-loop", "1",
			"-t", strconv.Itoa(t.cfg.EndCreditSeconds),
			"-i", t.cfg.EndCreditPath,
		)
	} else {
		args = append(args, "-i", t.cfg.EndCreditPath)
	}

	// Input 2: the banner.
	args = append(args, "-i", t.cfg.BannerPath)

	comp := Composition{
		Layout:    t.layout,
		FontPath:  t.cfg.FontPath,
		PartText:  fmt.Sprintf("Part No - %d", seg.Index),
		TitleText: title,
	}
	args = append(args, "-filter_complex", comp.Render())

	args = append(args,
		"-map", "[outv]",
		"-map", "[outa]",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
	)
	args = append(args, t.extraArgs...)
	args = append(args, outPath)
	return args
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tail(out []byte) string {
	if len(out) > diagnosticTailBytes {
		out = out[len(out)-diagnosticTailBytes:]
	}
	return string(bytes.TrimSpace(out))
}
