package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// PredictionStore implements domain.PredictionStore using PostgreSQL. Member
// predictions, aggregate and metadata are stored as JSONB documents.
type PredictionStore struct {
	pool *pgxpool.Pool
}

var _ domain.PredictionStore = (*PredictionStore)(nil)

// NewPredictionStore creates a new PredictionStore backed by the given pool.
func NewPredictionStore(pool *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

// Save inserts a council prediction. Saving the same id twice returns
// domain.ErrAlreadyExists.
func (s *PredictionStore) Save(ctx context.Context, p domain.CouncilPrediction) error {
	members, err := json.Marshal(p.MemberPredictions)
	if err != nil {
		return fmt.Errorf("postgres: marshal member predictions: %w", err)
	}
	aggregated, err := json.Marshal(p.AggregatedPredictions)
	if err != nil {
		return fmt.Errorf("postgres: marshal aggregated predictions: %w", err)
	}
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal metadata: %w", err)
	}

	const query = `
		INSERT INTO predictions (
			id, market_id, timestamp, member_predictions, aggregated_predictions, metadata
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, p.ID, p.MarketID, p.Timestamp, members, aggregated, metadata)
	if err != nil {
		return fmt.Errorf("postgres: save prediction %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: save prediction %s: %w", p.ID, domain.ErrAlreadyExists)
	}
	return nil
}

const predictionCols = `id, market_id, timestamp, member_predictions, aggregated_predictions, metadata`

func scanPrediction(row pgx.Row) (domain.CouncilPrediction, error) {
	var (
		p                             domain.CouncilPrediction
		members, aggregated, metadata []byte
	)
	if err := row.Scan(&p.ID, &p.MarketID, &p.Timestamp, &members, &aggregated, &metadata); err != nil {
		return domain.CouncilPrediction{}, err
	}
	if err := json.Unmarshal(members, &p.MemberPredictions); err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("unmarshal member predictions: %w", err)
	}
	if err := json.Unmarshal(aggregated, &p.AggregatedPredictions); err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("unmarshal aggregated predictions: %w", err)
	}
	if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return p, nil
}

// Latest returns the most recent prediction for a market.
func (s *PredictionStore) Latest(ctx context.Context, marketID string) (domain.CouncilPrediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+predictionCols+` FROM predictions WHERE market_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		marketID)
	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CouncilPrediction{}, domain.ErrNotFound
		}
		return domain.CouncilPrediction{}, fmt.Errorf("postgres: latest prediction for %s: %w", marketID, err)
	}
	return p, nil
}

// ListByMarket returns a market's predictions, newest first.
func (s *PredictionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.CouncilPrediction, error) {
	query, args := appendListOpts(`SELECT `+predictionCols+` FROM predictions WHERE market_id = $1`,
		[]any{marketID}, 2, "timestamp", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list predictions for %s: %w", marketID, err)
	}
	defer rows.Close()

	out := []domain.CouncilPrediction{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list predictions rows: %w", err)
	}
	return out, nil
}
