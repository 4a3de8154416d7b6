package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// SegmentConfigRepository reads and writes the global threshold overrides.
// Get always returns a usable configuration: embedded defaults merged with
// whatever override row exists.
type SegmentConfigRepository interface {
	Get(ctx context.Context) (domain.SegmentConfig, error)
	GetOverride(ctx context.Context) (*domain.SegmentConfigOverride, error)
	Save(ctx context.Context, override *domain.SegmentConfigOverride) error
}

type segmentConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSegmentConfigRepository instantiates repository.
func NewSegmentConfigRepository(pool *pgxpool.Pool) SegmentConfigRepository {
	return &segmentConfigRepository{pool: pool}
}

func (r *segmentConfigRepository) Get(ctx context.Context) (domain.SegmentConfig, error) {
	override, err := r.GetOverride(ctx)
	if err != nil {
		return domain.SegmentConfig{}, err
	}
	return override.Apply(domain.DefaultSegmentConfig()), nil
}

func (r *segmentConfigRepository) GetOverride(ctx context.Context) (*domain.SegmentConfigOverride, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT overrides FROM segment_config WHERE singleton=TRUE`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	var override domain.SegmentConfigOverride
	if err := json.Unmarshal(payload, &override); err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *segmentConfigRepository) Save(ctx context.Context, override *domain.SegmentConfigOverride) error {
	payload, err := json.Marshal(override)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO segment_config (singleton, overrides, updated_at)
        VALUES (TRUE, $1, NOW())
        ON CONFLICT (singleton) DO UPDATE SET overrides=EXCLUDED.overrides, updated_at=NOW()`
	_, err = r.pool.Exec(ctx, query, payload)
	return err
}
