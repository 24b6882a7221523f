// brandcut/publish/publish.go
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"brandcut/config"
	"brandcut/transform"
)

// Result is the outcome of publishing one artifact: a remote locator or a
// failure reason, never both.
type Result struct {
	Index         int    `json:"index"`
	RemoteLocator string `json:"remoteLocator,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

func (r Result) OK() bool { return r.FailureReason == "" }

// MarshalJSON adds the explicit outcome discriminator callers key on.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	outcome := "success"
	if !r.OK() {
		outcome = "failure"
	}
	return json.Marshal(struct {
		alias
		Outcome string `json:"outcome"`
	}{alias(r), outcome})
}

// Object is one stored artifact as reported by List.
type Object struct {
	Key      string            `json:"key"`
	Size     int64             `json:"sizeBytes"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Publisher uploads produced artifacts to an S3-compatible object store.
type Publisher struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func New(cfg *config.Config) (*Publisher, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create storage client: %w", err)
	}

	baseURL := cfg.StorageBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.StorageUseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, cfg.StorageEndpoint)
	}

	return &Publisher{client: client, bucket: cfg.StorageBucket, baseURL: baseURL}, nil
}

// Upload stores the artifact behind res under folder, attaching the
// segment's ordinal, offsets and size as object metadata. Provider errors
// become failure Results so the caller's loop continues.
func (p *Publisher) Upload(ctx context.Context, res transform.SegmentResult, folder string) Result {
	out := Result{Index: res.Index}
	key := ObjectKey(folder, res.ArtifactPath)

	_, err := p.client.FPutObject(ctx, p.bucket, key, res.ArtifactPath, minio.PutObjectOptions{
		ContentType:  "video/mp4",
		UserMetadata: SegmentMetadata(res),
	})
	if err != nil {
		out.FailureReason = fmt.Sprintf("upload failed: %v", err)
		return out
	}

	out.RemoteLocator = fmt.Sprintf("%s/%s/%s", p.baseURL, p.bucket, key)
	return out
}

// List returns the stored objects under prefix.
func (p *Publisher) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for obj := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list failed: %w", obj.Err)
		}
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size, Metadata: obj.UserMetadata})
	}
	return objects, nil
}

// VerifyCredentials checks that the configured bucket is reachable with the
// configured credentials.
func (p *Publisher) VerifyCredentials(ctx context.Context) (bool, error) {
	return p.client.BucketExists(ctx, p.bucket)
}

// ObjectKey places an artifact under its request (or caller-supplied)
// folder.
func ObjectKey(folder, artifactPath string) string {
	return path.Join(folder, path.Base(artifactPath))
}

// SegmentMetadata flattens a segment outcome into provider-side metadata.
func SegmentMetadata(res transform.SegmentResult) map[string]string {
	return map[string]string{
		"segment-index": strconv.Itoa(res.Index),
		"start-seconds": strconv.FormatFloat(res.Start, 'f', -1, 64),
		"span-seconds":  strconv.FormatFloat(res.Span, 'f', -1, 64),
		"size-bytes":    strconv.FormatInt(res.ArtifactSize, 10),
	}
}
