package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// ThreadRepository reads classified email-thread summaries. Rows are written
// by the external classification pipeline; this service only consumes them.
type ThreadRepository interface {
	ListRecent(ctx context.Context, customerID string, limit int) ([]domain.ThreadSummary, error)
}

type threadRepository struct {
	pool *pgxpool.Pool
}

// NewThreadRepository instantiates repository.
func NewThreadRepository(pool *pgxpool.Pool) ThreadRepository {
	return &threadRepository{pool: pool}
}

func (r *threadRepository) ListRecent(ctx context.Context, customerID string, limit int) ([]domain.ThreadSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, subject, sentiment, last_message_at
        FROM customer_threads
        WHERE customer_id=$1
        ORDER BY last_message_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ThreadSummary
	for rows.Next() {
		var thread domain.ThreadSummary
		if err := rows.Scan(&thread.ID, &thread.Subject, &thread.Sentiment, &thread.LastMessageAt); err != nil {
			return nil, err
		}
		result = append(result, thread)
	}
	return result, rows.Err()
}
