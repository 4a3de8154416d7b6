package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// UsageRepository exposes the externally ingested daily usage rows and their
// 30-day aggregate.
type UsageRepository interface {
	RecordDay(ctx context.Context, day domain.UsageDay) error
	Aggregate30d(ctx context.Context, customerID string, now time.Time) (domain.UsageMetrics, error)
}

type usageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository instantiates the Postgres-backed repository.
func NewUsageRepository(pool *pgxpool.Pool) UsageRepository {
	return &usageRepository{pool: pool}
}

func (r *usageRepository) RecordDay(ctx context.Context, day domain.UsageDay) error {
	const query = `
        INSERT INTO usage_days (customer_id, day, logins, pieces_created, downloads, ai_usage)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (customer_id, day)
        DO UPDATE SET logins=EXCLUDED.logins, pieces_created=EXCLUDED.pieces_created,
                      downloads=EXCLUDED.downloads, ai_usage=EXCLUDED.ai_usage`
	_, err := r.pool.Exec(ctx, query,
		day.CustomerID,
		day.Day,
		day.Logins,
		day.PiecesCreated,
		day.Downloads,
		day.AIUsage,
	)
	return err
}

func (r *usageRepository) Aggregate30d(ctx context.Context, customerID string, now time.Time) (domain.UsageMetrics, error) {
	const query = `
        SELECT COALESCE(SUM(logins),0), COALESCE(SUM(pieces_created),0),
               COALESCE(SUM(downloads),0), COALESCE(SUM(ai_usage),0),
               COUNT(*) FILTER (WHERE logins + pieces_created + downloads + ai_usage > 0),
               MAX(day) FILTER (WHERE logins + pieces_created + downloads + ai_usage > 0)
        FROM usage_days
        WHERE customer_id=$1 AND day > $2`
	var metrics domain.UsageMetrics
	var lastActive *time.Time
	err := r.pool.QueryRow(ctx, query, customerID, now.AddDate(0, 0, -30)).Scan(
		&metrics.Logins,
		&metrics.PiecesCreated,
		&metrics.Downloads,
		&metrics.AIUsage,
		&metrics.ActiveDays,
		&lastActive,
	)
	if err != nil {
		return domain.UsageMetrics{}, err
	}
	metrics.LastActivityAt = lastActive
	return metrics, nil
}

// cachedUsageRepository is a cache-aside decorator over the aggregate query,
// the one expensive read on every recompute.
type cachedUsageRepository struct {
	inner  UsageRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUsageRepository wraps a UsageRepository with a Redis cache. Cache
// failures fall through to the database.
func NewCachedUsageRepository(inner UsageRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UsageRepository {
	return &cachedUsageRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func usageCacheKey(customerID string) string {
	return fmt.Sprintf("usage:30d:%s", customerID)
}

func (r *cachedUsageRepository) RecordDay(ctx context.Context, day domain.UsageDay) error {
	if err := r.inner.RecordDay(ctx, day); err != nil {
		return err
	}
	if r.client != nil {
		if err := r.client.Del(ctx, usageCacheKey(day.CustomerID)).Err(); err != nil {
			r.logger.Warn("usage cache invalidation failed", zap.String("customer_id", day.CustomerID), zap.Error(err))
		}
	}
	return nil
}

func (r *cachedUsageRepository) Aggregate30d(ctx context.Context, customerID string, now time.Time) (domain.UsageMetrics, error) {
	key := usageCacheKey(customerID)
	if r.client != nil {
		cached, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			var metrics domain.UsageMetrics
			if err := json.Unmarshal(cached, &metrics); err == nil {
				return metrics, nil
			}
		} else if err != redis.Nil {
			r.logger.Warn("usage cache read failed", zap.String("customer_id", customerID), zap.Error(err))
		}
	}

	metrics, err := r.inner.Aggregate30d(ctx, customerID, now)
	if err != nil {
		return domain.UsageMetrics{}, err
	}

	if r.client != nil {
		if payload, err := json.Marshal(metrics); err == nil {
			if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
				r.logger.Warn("usage cache write failed", zap.String("customer_id", customerID), zap.Error(err))
			}
		}
	}
	return metrics, nil
}
