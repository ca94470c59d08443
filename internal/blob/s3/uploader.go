package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/cyoung/polydata/internal/domain"
)

// multipartThreshold is the artifact size above which uploads switch to
// multipart.
const multipartThreshold = 32 * 1024 * 1024

// ArtifactUploader pushes exported extraction artifacts to object storage
// under a date-partitioned key layout:
//
//	{prefix}/{YYYY-MM-DD}/{run_id}/{name}
type ArtifactUploader struct {
	writer domain.BlobWriter
	prefix string
}

// NewArtifactUploader creates an uploader writing under the given key
// prefix. An empty prefix defaults to "exports".
func NewArtifactUploader(writer domain.BlobWriter, prefix string) *ArtifactUploader {
	if prefix == "" {
		prefix = "exports"
	}
	return &ArtifactUploader{writer: writer, prefix: prefix}
}

func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Key returns the object key an artifact will be stored under.
func (u *ArtifactUploader) Key(runID, name string, at time.Time) string {
	return path.Join(u.prefix, at.UTC().Format("2006-01-02"), runID, name)
}

// Upload stores one artifact, choosing multipart for large payloads.
func (u *ArtifactUploader) Upload(ctx context.Context, runID, name string, data []byte, at time.Time) (string, error) {
	key := u.Key(runID, name, at)
	if len(data) > multipartThreshold {
		if err := u.writer.PutMultipart(ctx, key, bytes.NewReader(data), 0); err != nil {
			return "", fmt.Errorf("s3blob: upload artifact %s: %w", key, err)
		}
		return key, nil
	}
	if err := u.writer.Put(ctx, key, bytes.NewReader(data), contentTypeFor(name)); err != nil {
		return "", fmt.Errorf("s3blob: upload artifact %s: %w", key, err)
	}
	return key, nil
}
