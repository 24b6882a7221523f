// brandcut/acquire/acquire.go
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// copyChunkSize is the buffer used when streaming the body to disk.
// Sources can run to hundreds of MB, so nothing is held in memory.
const copyChunkSize = 64 * 1024

// Asset is the downloaded source file. Duration and dimensions are filled
// in by the prober; the struct is not touched after that.
type Asset struct {
	Path        string
	Size        int64
	ContentType string
	Duration    float64
	Width       int
	Height      int
}

// Acquirer streams remote source files into a request's working directory.
type Acquirer struct {
	client  *http.Client
	maxSize int64
}

func New(client *http.Client, maxSize int64) *Acquirer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Acquirer{client: client, maxSize: maxSize}
}

// Download fetches rawURL into dir and returns the resulting Asset.
// It writes exactly one file into dir.
func (a *Acquirer) Download(ctx context.Context, rawURL, dir string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download source, status: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	declared := resp.ContentLength
	if declared > 0 && a.maxSize > 0 && declared > a.maxSize {
		return nil, fmt.Errorf("declared source size %d exceeds limit of %d bytes", declared, a.maxSize)
	}

	dst := filepath.Join(dir, "source"+extensionFor(contentType, rawURL))
	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("could not create local file: %w", err)
	}
	defer out.Close()

	// Use a LimitedReader to enforce max input size even when the remote
	// lies about (or omits) Content-Length.
	reader := resp.Body
	var limited *io.LimitedReader
	if a.maxSize > 0 {
		limited = &io.LimitedReader{R: resp.Body, N: a.maxSize + 1}
		reader = io.NopCloser(limited)
	}

	buf := make([]byte, copyChunkSize)
	written, err := io.CopyBuffer(out, reader, buf)
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("failed to write source file: %w", err)
	}
	if limited != nil && written > a.maxSize {
		os.Remove(dst)
		return nil, fmt.Errorf("source size exceeds limit of %d bytes", a.maxSize)
	}
	if declared > 0 && written < declared {
		os.Remove(dst)
		return nil, fmt.Errorf("truncated download: got %d of %d declared bytes", written, declared)
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("failed to flush source file: %w", err)
	}

	return &Asset{Path: dst, Size: written, ContentType: contentType}, nil
}

// extensionFor picks a local filename extension from the declared content
// type, falling back to the URL's suffix, defaulting to .mp4.
func extensionFor(contentType, rawURL string) string {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	switch strings.TrimSpace(strings.ToLower(ct)) {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "video/x-matroska":
		return ".mkv"
	case "video/mpeg":
		return ".mpg"
	}

	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); isVideoExt(ext) {
			return ext
		}
	}
	return ".mp4"
}

func isVideoExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".webm", ".mov", ".mkv", ".mpg", ".avi", ".ts", ".m4v":
		return true
	}
	return false
}
