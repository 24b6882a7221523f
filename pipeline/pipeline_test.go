package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"brandcut/acquire"
	"brandcut/planner"
	"brandcut/probe"
	"brandcut/publish"
	"brandcut/registry"
	"brandcut/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAcquirer struct {
	err error
}

func (m *mockAcquirer) Download(ctx context.Context, url, dir string) (*acquire.Asset, error) {
	if m.err != nil {
		return nil, m.err
	}
	path := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(path, []byte("fake video"), 0o644); err != nil {
		return nil, err
	}
	return &acquire.Asset{Path: path, Size: 10, ContentType: "video/mp4"}, nil
}

type mockProber struct {
	info probe.Info
	err  error
}

func (m *mockProber) Probe(ctx context.Context, path string) (probe.Info, error) {
	return m.info, m.err
}

type mockTransformer struct {
	failIndices  map[int]bool
	preflightErr error
	calls        int
}

func (m *mockTransformer) CheckResources(workDir string) error {
	return m.preflightErr
}

func (m *mockTransformer) Transform(ctx context.Context, srcPath string, seg planner.Segment, title, outDir string) transform.SegmentResult {
	m.calls++
	res := transform.SegmentResult{Index: seg.Index, Start: seg.Start, Span: seg.Span}
	if m.failIndices[seg.Index] {
		res.FailureReason = "engine failed: simulated"
		return res
	}
	res.ArtifactPath = filepath.Join(outDir, seg.OutputName)
	res.ArtifactSize = 1234
	return res
}

type mockPublisher struct {
	failIndices map[int]bool
	uploaded    []int
}

func (m *mockPublisher) Upload(ctx context.Context, res transform.SegmentResult, folder string) publish.Result {
	m.uploaded = append(m.uploaded, res.Index)
	out := publish.Result{Index: res.Index}
	if m.failIndices[res.Index] {
		out.FailureReason = "upload failed: simulated"
		return out
	}
	out.RemoteLocator = fmt.Sprintf("https://store.local/bucket/%s/part_%d.mp4", folder, res.Index)
	return out
}

type fixture struct {
	reg         *registry.Registry
	workRoot    string
	acquirer    *mockAcquirer
	prober      *mockProber
	transformer *mockTransformer
	publisher   *mockPublisher
	pipe        *Pipeline
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		reg:         registry.New(),
		workRoot:    t.TempDir(),
		acquirer:    &mockAcquirer{},
		prober:      &mockProber{info: probe.Info{Duration: 150, Width: 1920, Height: 1080}},
		transformer: &mockTransformer{},
		publisher:   &mockPublisher{},
	}
	f.pipe = New(f.reg, f.acquirer, f.prober, f.transformer, f.publisher, f.workRoot)
	return f
}

func (f *fixture) assertCleaned(t *testing.T) {
	t.Helper()
	assert.Equal(t, 0, f.reg.Len(), "registry must be empty after the request")
	entries, err := os.ReadDir(f.workRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "working directory must be deleted after the request")
}

func testRequest() Request {
	return Request{
		SourceURL:       "https://example.com/movie.mp4",
		SegmentDuration: 60,
		Overlap:         0,
		Publish:         true,
	}
}

func TestRunSuccess(t *testing.T) {
	f := newFixture(t)

	m := f.pipe.Run(context.Background(), testRequest())

	assert.True(t, m.Success)
	assert.Empty(t, m.FailedStage)
	require.NotNil(t, m.Source)
	assert.Equal(t, 150.0, m.Source.DurationSeconds)
	assert.Equal(t, 1920, m.Source.Width)

	// 150s at 60s per segment: three segments, all published.
	require.Len(t, m.Segments, 3)
	require.Len(t, m.PublishResults, 3)
	assert.Equal(t, []int{1, 2, 3}, f.publisher.uploaded)
	assert.Greater(t, m.ProcessingTimeSeconds, 0.0)

	f.assertCleaned(t)
}

func TestRunPartialSegmentFailure(t *testing.T) {
	f := newFixture(t)
	f.transformer.failIndices = map[int]bool{2: true}

	m := f.pipe.Run(context.Background(), testRequest())

	assert.True(t, m.Success, "one failed segment must not fail the request")
	require.Len(t, m.Segments, 3)
	assert.True(t, m.Segments[0].OK())
	assert.False(t, m.Segments[1].OK())
	assert.Contains(t, m.Segments[1].FailureReason, "simulated")
	assert.True(t, m.Segments[2].OK())

	// Only the successful artifacts are published.
	assert.Equal(t, []int{1, 3}, f.publisher.uploaded)

	f.assertCleaned(t)
}

func TestRunAllSegmentsFailed(t *testing.T) {
	f := newFixture(t)
	f.transformer.failIndices = map[int]bool{1: true, 2: true, 3: true}

	m := f.pipe.Run(context.Background(), testRequest())

	assert.False(t, m.Success)
	assert.Equal(t, StageEngine, m.FailedStage)
	assert.Len(t, m.Segments, 3)
	assert.Empty(t, f.publisher.uploaded)

	f.assertCleaned(t)
}

func TestRunAcquisitionFailure(t *testing.T) {
	f := newFixture(t)
	f.acquirer.err = errors.New("failed to download source, status: 404 Not Found")

	m := f.pipe.Run(context.Background(), testRequest())

	assert.False(t, m.Success)
	assert.Equal(t, StageAcquire, m.FailedStage)
	assert.Contains(t, m.FailureReason, "404")
	assert.Nil(t, m.Source)
	assert.Zero(t, f.transformer.calls)

	f.assertCleaned(t)
}

func TestRunProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.prober.err = errors.New("probe reported non-positive duration 0")

	m := f.pipe.Run(context.Background(), testRequest())

	assert.False(t, m.Success)
	assert.Equal(t, StageProbe, m.FailedStage)
	assert.Zero(t, f.transformer.calls)

	f.assertCleaned(t)
}

func TestRunPlanningFailure(t *testing.T) {
	f := newFixture(t)
	req := testRequest()
	req.Overlap = 60 // equal to segment duration

	m := f.pipe.Run(context.Background(), req)

	assert.False(t, m.Success)
	assert.Equal(t, StagePlan, m.FailedStage)
	assert.Zero(t, f.transformer.calls)

	f.assertCleaned(t)
}

func TestRunEnginePreflightFailure(t *testing.T) {
	f := newFixture(t)
	f.transformer.preflightErr = errors.New("not enough free memory")

	m := f.pipe.Run(context.Background(), testRequest())

	assert.False(t, m.Success)
	assert.Equal(t, StageEngine, m.FailedStage)
	assert.Zero(t, f.transformer.calls, "no segment may be attempted when the engine is unavailable")

	f.assertCleaned(t)
}

func TestRunPublishItemFailure(t *testing.T) {
	f := newFixture(t)
	f.publisher.failIndices = map[int]bool{1: true}

	m := f.pipe.Run(context.Background(), testRequest())

	assert.True(t, m.Success, "a failed upload must not fail the request")
	require.Len(t, m.PublishResults, 3)
	assert.False(t, m.PublishResults[0].OK())
	assert.True(t, m.PublishResults[1].OK())
	assert.True(t, m.PublishResults[2].OK())

	f.assertCleaned(t)
}

func TestRunWithoutPublish(t *testing.T) {
	f := newFixture(t)
	req := testRequest()
	req.Publish = false

	m := f.pipe.Run(context.Background(), req)

	assert.True(t, m.Success)
	assert.Empty(t, m.PublishResults)
	assert.Empty(t, f.publisher.uploaded)

	f.assertCleaned(t)
}

func TestRunCallerTitleOverridesFilename(t *testing.T) {
	f := newFixture(t)
	f.prober.info = probe.Info{Duration: 30, Width: 1280, Height: 720}
	req := testRequest()
	req.Title = "Night Train"

	m := f.pipe.Run(context.Background(), req)

	require.True(t, m.Success)
	require.Len(t, m.Segments, 1)
	assert.Contains(t, m.Segments[0].ArtifactPath, "Night Train_part_001.mp4")
}

func TestRunTitleFallsBackToSourceFilename(t *testing.T) {
	f := newFixture(t)
	f.prober.info = probe.Info{Duration: 30, Width: 1280, Height: 720}

	m := f.pipe.Run(context.Background(), testRequest())

	require.True(t, m.Success)
	require.Len(t, m.Segments, 1)
	assert.Contains(t, m.Segments[0].ArtifactPath, "movie_part_001.mp4")
}

func TestTitleFromURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"plain filename", "https://example.com/media/movie.mp4", "movie"},
		{"percent-encoded", "https://example.com/Night%20Train.mp4", "Night Train"},
		{"no path", "https://example.com/", "video"},
		{"unparseable", "://bad", "video"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, titleFromURL(tc.url))
		})
	}
}
