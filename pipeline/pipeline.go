// brandcut/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"brandcut/acquire"
	"brandcut/planner"
	"brandcut/probe"
	"brandcut/publish"
	"brandcut/registry"
	"brandcut/transform"
)

// Stage names reported in a failed manifest. Only the unrecoverable
// classes appear here: per-segment and per-upload failures are folded into
// the manifest instead of failing the request.
const (
	StageAcquire = "acquiring"
	StageProbe   = "probing"
	StagePlan    = "planning"
	StageEngine  = "transforming"
	StagePublish = "publishing"
)

// Collaborator contracts, satisfied by the concrete packages and by test
// mocks.

type Acquirer interface {
	Download(ctx context.Context, url, dir string) (*acquire.Asset, error)
}

type Prober interface {
	Probe(ctx context.Context, path string) (probe.Info, error)
}

type Transformer interface {
	Transform(ctx context.Context, srcPath string, seg planner.Segment, title, outDir string) transform.SegmentResult
	CheckResources(workDir string) error
}

type Publisher interface {
	Upload(ctx context.Context, res transform.SegmentResult, folder string) publish.Result
}

// Request is one validated split-and-brand job.
type Request struct {
	SourceURL         string
	SegmentDuration   float64
	Overlap           float64
	Title             string
	DestinationFolder string
	Publish           bool
}

type SourceInfo struct {
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	SizeBytes       int64   `json:"sizeBytes"`
}

// Manifest is the aggregate report for one request.
type Manifest struct {
	Success               bool                      `json:"success"`
	FailedStage           string                    `json:"failedStage,omitempty"`
	FailureReason         string                    `json:"failureReason,omitempty"`
	Source                *SourceInfo               `json:"sourceInfo,omitempty"`
	Segments              []transform.SegmentResult `json:"segments,omitempty"`
	PublishResults        []publish.Result          `json:"publishResults,omitempty"`
	ProcessingTimeSeconds float64                   `json:"processingTimeSeconds"`
}

func (m *Manifest) fail(stage string, err error) *Manifest {
	m.Success = false
	m.FailedStage = stage
	m.FailureReason = err.Error()
	return m
}

// Pipeline drives one request end-to-end, synchronously: acquire working
// directory, download, probe, plan, transform each segment, optionally
// publish, clean up. Cleanup runs on every exit path.
type Pipeline struct {
	registry    *registry.Registry
	acquirer    Acquirer
	prober      Prober
	transformer Transformer
	publisher   Publisher // nil when storage is not configured
	workRoot    string
}

func New(reg *registry.Registry, acq Acquirer, prb Prober, tr Transformer, pub Publisher, workRoot string) *Pipeline {
	return &Pipeline{
		registry:    reg,
		acquirer:    acq,
		prober:      prb,
		transformer: tr,
		publisher:   pub,
		workRoot:    workRoot,
	}
}

// Run executes the request and always returns a manifest. Per-segment and
// per-upload failures never abort the run; download, probe, plan and engine
// pre-flight failures do, after cleanup.
func (p *Pipeline) Run(ctx context.Context, req Request) *Manifest {
	started := time.Now()
	id := shortuuid.New()
	m := &Manifest{}
	defer func() {
		m.ProcessingTimeSeconds = time.Since(started).Seconds()
	}()

	log.Printf("[REQ-%s] split request for %s (segment=%vs overlap=%vs publish=%v)",
		id, req.SourceURL, req.SegmentDuration, req.Overlap, req.Publish)

	dir, err := p.registry.Acquire(p.workRoot, "brandcut_"+id+"_")
	if err != nil {
		return m.fail(StageAcquire, err)
	}
	defer func() {
		if err := p.registry.Release(dir); err != nil {
			log.Printf("[REQ-%s] Warning: %v", id, err)
		}
	}()

	asset, err := p.acquirer.Download(ctx, req.SourceURL, dir)
	if err != nil {
		return m.fail(StageAcquire, err)
	}
	log.Printf("[REQ-%s] downloaded %d bytes to %s", id, asset.Size, asset.Path)

	info, err := p.prober.Probe(ctx, asset.Path)
	if err != nil {
		return m.fail(StageProbe, err)
	}
	asset.Duration = info.Duration
	asset.Width = info.Width
	asset.Height = info.Height
	m.Source = &SourceInfo{
		DurationSeconds: info.Duration,
		Width:           info.Width,
		Height:          info.Height,
		SizeBytes:       asset.Size,
	}

	title := req.Title
	if title == "" {
		title = titleFromURL(req.SourceURL)
	}

	plan, err := planner.Plan(info.Duration, req.SegmentDuration, req.Overlap, title)
	if err != nil {
		return m.fail(StagePlan, err)
	}
	log.Printf("[REQ-%s] planned %d segments over %.2fs", id, len(plan), info.Duration)

	if err := p.transformer.CheckResources(dir); err != nil {
		return m.fail(StageEngine, err)
	}

	outDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return m.fail(StageEngine, fmt.Errorf("could not create output directory: %w", err))
	}

	succeeded := 0
	for _, seg := range plan {
		res := p.transformer.Transform(ctx, asset.Path, seg, title, outDir)
		if res.OK() {
			succeeded++
		} else {
			log.Printf("[REQ-%s] segment %d failed: %s", id, seg.Index, res.FailureReason)
		}
		m.Segments = append(m.Segments, res)
	}

	// Policy: a request where every segment fails is a failed request.
	if succeeded == 0 {
		return m.fail(StageEngine, fmt.Errorf("all %d segments failed", len(plan)))
	}

	if req.Publish {
		if p.publisher == nil {
			return m.fail(StagePublish, fmt.Errorf("publishing requested but no object storage is configured"))
		}
		folder := req.DestinationFolder
		if folder == "" {
			folder = "req_" + id
		}
		for _, res := range m.Segments {
			if !res.OK() {
				continue
			}
			pr := p.publisher.Upload(ctx, res, folder)
			if !pr.OK() {
				log.Printf("[REQ-%s] publish of segment %d failed: %s", id, pr.Index, pr.FailureReason)
			}
			m.PublishResults = append(m.PublishResults, pr)
		}
	}

	m.Success = true
	log.Printf("[REQ-%s] done: %d/%d segments in %.2fs", id, succeeded, len(plan), time.Since(started).Seconds())
	return m
}

// titleFromURL derives the caption title from the source URL's filename.
// The local copy is always named source.<ext>, so the URL is the only
// place the original name survives. Falls back to "video" when the URL
// path carries no usable name.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "video"
	}
	base := path.Base(u.Path)
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" || name == "." || name == "/" {
		return "video"
	}
	return name
}
