package s3blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const (
	// exportPartSize is the multipart chunk used for history exports.
	exportPartSize int64 = 8 * 1024 * 1024
	exportsPrefix        = "exports"
)

// Exporter writes a market's prediction history as JSONL and records each
// export in the audit log.
type Exporter struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
	now    func() time.Time
}

// NewExporter creates an Exporter that uploads through writer and records
// each export in audit.
func NewExporter(writer domain.BlobWriter, audit domain.AuditStore) *Exporter {
	return &Exporter{writer: writer, audit: audit, now: time.Now}
}

// ExportMarket streams predictions to exports/<market>/<date>.jsonl and
// returns the object path. An empty history uploads nothing and returns "".
func (e *Exporter) ExportMarket(ctx context.Context, marketID string, predictions []domain.CouncilPrediction) (string, error) {
	if len(predictions) == 0 {
		return "", nil
	}

	key := exportPath(marketID, e.now())
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeJSONL(pw, predictions))
	}()

	if err := e.writer.PutMultipart(ctx, key, pr, exportPartSize); err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("s3blob: export %s: %w", marketID, err)
	}

	if e.audit != nil {
		if err := e.audit.Log(ctx, "export.predictions", map[string]any{
			"market_id": marketID,
			"path":      key,
			"count":     len(predictions),
		}); err != nil {
			return key, fmt.Errorf("s3blob: export %s audit log: %w", marketID, err)
		}
	}
	return key, nil
}

// writeJSONL encodes one compact record per line.
func writeJSONL[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return nil
}

// exportPath builds exports/<market>/<date>.jsonl.
func exportPath(marketID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", exportsPrefix, marketID, at.UTC().Format("2006-01-02"))
}
