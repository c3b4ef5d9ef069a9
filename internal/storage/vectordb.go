package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

// DefaultTable holds the indexed passages: filename, content, embedding.
const DefaultTable = "documents"

// VectorIndex runs cosine-distance similarity search over a pgvector table.
type VectorIndex struct {
	pool  *pgxpool.Pool
	query string
}

func NewVectorIndex(pool *pgxpool.Pool, table string) *VectorIndex {
	return &VectorIndex{pool: pool, query: similarityQuery(table)}
}

func similarityQuery(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return fmt.Sprintf(
		"SELECT content, filename, 1 - (embedding <=> $1) AS score FROM %s ORDER BY embedding <=> $1 LIMIT $2",
		pgx.Identifier{table}.Sanitize(),
	)
}

func (v *VectorIndex) Available() bool { return true }

// Search returns the k passages nearest to embedding.
func (v *VectorIndex) Search(ctx context.Context, embedding []float32, k int) ([]graph.ScoredText, error) {
	rows, err := v.pool.Query(ctx, v.query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []graph.ScoredText
	for rows.Next() {
		var hit graph.ScoredText
		if err := rows.Scan(&hit.Text, &hit.Source, &hit.Score); err != nil {
			return nil, err
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// UnavailableIndex stands in for a vector index that could not be opened.
type UnavailableIndex struct {
	Reason string
}

func (u UnavailableIndex) Available() bool { return false }

func (u UnavailableIndex) Search(context.Context, []float32, int) ([]graph.ScoredText, error) {
	return nil, fmt.Errorf("vector index: %w: %s", graph.ErrUnavailable, u.Reason)
}

// OpenVectorIndex connects to Postgres and returns the index, or an
// UnavailableIndex when the database cannot be reached.
func OpenVectorIndex(ctx context.Context, url, table string, logger *zap.Logger) (graph.VectorIndex, *pgxpool.Pool) {
	pool, err := Connect(ctx, url)
	if err != nil {
		logger.Warn("vector index unavailable", zap.Error(err))
		return UnavailableIndex{Reason: err.Error()}, nil
	}
	logger.Info("vector index initialized", zap.String("table", table))
	return NewVectorIndex(pool, table), pool
}
