package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeJSONL = "application/x-ndjson"

	predictionsPrefix = "predictions"
	latestObject      = "latest.json"
)

// PredictionArchive implements domain.PredictionArchive. Every prediction is
// written twice under predictions/<market>/: once as <timestamp>.json and
// once as latest.json.
type PredictionArchive struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewPredictionArchive creates a PredictionArchive over writer and reader.
func NewPredictionArchive(writer domain.BlobWriter, reader domain.BlobReader) *PredictionArchive {
	return &PredictionArchive{writer: writer, reader: reader}
}

func marketPrefix(marketID string) string {
	return path.Join(predictionsPrefix, marketID) + "/"
}

// predictionObject names a snapshot after its timestamp with ':' and '.'
// replaced so the key sorts lexically and is filesystem-safe.
func predictionObject(p domain.CouncilPrediction) string {
	ts := p.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return marketPrefix(p.MarketID) + ts + ".json"
}

// Store uploads the snapshot then overwrites latest.json. It returns the
// snapshot path.
func (a *PredictionArchive) Store(ctx context.Context, p domain.CouncilPrediction) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal prediction %s: %w", p.ID, err)
	}

	snapshot := predictionObject(p)
	if err := a.writer.Put(ctx, snapshot, bytes.NewReader(data), contentTypeJSON); err != nil {
		return "", fmt.Errorf("s3blob: archive prediction: %w", err)
	}
	latest := marketPrefix(p.MarketID) + latestObject
	if err := a.writer.Put(ctx, latest, bytes.NewReader(data), contentTypeJSON); err != nil {
		return snapshot, fmt.Errorf("s3blob: archive latest prediction: %w", err)
	}
	return snapshot, nil
}

// Latest reads latest.json for the market. A missing object yields an error
// wrapping domain.ErrNotFound.
func (a *PredictionArchive) Latest(ctx context.Context, marketID string) (domain.CouncilPrediction, error) {
	return a.read(ctx, marketPrefix(marketID)+latestObject)
}

// History returns every archived snapshot for the market, newest first.
func (a *PredictionArchive) History(ctx context.Context, marketID string) ([]domain.CouncilPrediction, error) {
	infos, err := a.reader.List(ctx, marketPrefix(marketID))
	if err != nil {
		return nil, err
	}

	var out []domain.CouncilPrediction
	for _, info := range infos {
		if !strings.HasSuffix(info.Path, ".json") || path.Base(info.Path) == latestObject {
			continue
		}
		p, err := a.read(ctx, info.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (a *PredictionArchive) read(ctx context.Context, key string) (domain.CouncilPrediction, error) {
	body, err := a.reader.Get(ctx, key)
	if err != nil {
		return domain.CouncilPrediction{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("s3blob: read %s: %w", key, err)
	}
	var p domain.CouncilPrediction
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("s3blob: decode %s: %w", key, err)
	}
	return p, nil
}

var _ domain.PredictionArchive = (*PredictionArchive)(nil)
