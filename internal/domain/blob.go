package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// PredictionArchive keeps a cold copy of every council prediction.
type PredictionArchive interface {
	Store(ctx context.Context, p CouncilPrediction) (string, error)
	Latest(ctx context.Context, marketID string) (CouncilPrediction, error)
	// History returns every archived prediction for a market, newest first.
	History(ctx context.Context, marketID string) ([]CouncilPrediction, error)
}
