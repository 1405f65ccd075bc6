package s3blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// minPartSize is the S3 floor for multipart parts (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// Writer implements domain.BlobWriter using an S3-compatible backend.
type Writer struct {
	client *s3.Client
	bucket string
}

// NewWriter creates a Writer for the client's bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Object kinds recorded in the "kind" metadata entry.
const (
	kindSnapshot = "prediction-snapshot"
	kindLatest   = "prediction-latest"
	kindExport   = "prediction-export"
)

// objectMetadata derives user metadata from the archive key layout so objects
// can be filtered by market without opening them. Keys outside the layout
// get none.
func objectMetadata(key string) map[string]string {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[1] == "" {
		return nil
	}
	var kind string
	switch parts[0] {
	case predictionsPrefix:
		kind = kindSnapshot
		if parts[2] == latestObject {
			kind = kindLatest
		}
	case exportsPrefix:
		kind = kindExport
	default:
		return nil
	}
	return map[string]string{"market-id": parts[1], "kind": kind}
}

func (w *Writer) putInput(key string, data io.Reader, contentType string) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
		Metadata:    objectMetadata(key),
	}
	// latest.json is overwritten on every run.
	if path.Base(key) == latestObject {
		input.CacheControl = aws.String("no-cache")
	}
	return input
}

// Put uploads data in a single PutObject request, tagging archive objects
// with their market and kind.
func (w *Writer) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := w.client.PutObject(ctx, w.putInput(key, data, contentType))
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// PutMultipart streams data through the multipart upload manager. partSize is
// clamped to minPartSize.
func (w *Writer) PutMultipart(ctx context.Context, key string, data io.Reader, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}

	uploader := manager.NewUploader(w.client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	_, err := uploader.Upload(ctx, w.putInput(key, data, contentTypeJSONL))
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

var _ domain.BlobWriter = (*Writer)(nil)
