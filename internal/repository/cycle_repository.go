package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// ErrActiveCycleExists is returned when inserting a second in-progress cycle
// for the same customer. The partial unique index enforces the invariant at
// the data layer.
var ErrActiveCycleExists = errors.New("customer already has an in-progress cycle")

// ErrVersionConflict is returned when a conditional action-list write loses an
// optimistic-concurrency race.
var ErrVersionConflict = errors.New("cycle version conflict")

// CycleRepository encapsulates ongoing-cycle persistence.
type CycleRepository interface {
	Create(ctx context.Context, cycle *domain.OngoingCycle) error
	GetByID(ctx context.Context, customerID, cycleID string) (*domain.OngoingCycle, error)
	// ActiveByCustomer returns the most recently created in-progress cycle,
	// or nil when the customer has none.
	ActiveByCustomer(ctx context.Context, customerID string) (*domain.OngoingCycle, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.OngoingCycle, error)
	ListInProgressMirrored(ctx context.Context) ([]domain.OngoingCycle, error)
	// UpdateActions persists the action list plus recomputed progress/status,
	// conditional on the expected version.
	UpdateActions(ctx context.Context, cycle *domain.OngoingCycle, expectedVersion int64) error
	UpdateStatus(ctx context.Context, customerID, cycleID string, status domain.CycleStatus) error
}

type cycleRepository struct {
	pool *pgxpool.Pool
}

// NewCycleRepository instantiates repository.
func NewCycleRepository(pool *pgxpool.Pool) CycleRepository {
	return &cycleRepository{pool: pool}
}

const cycleColumns = `id, customer_id, segment, cadence, start_date, end_date, status, progress,
       actions, mirror_enabled, version, created_at, updated_at`

const pgUniqueViolation = "23505"

func (r *cycleRepository) Create(ctx context.Context, cycle *domain.OngoingCycle) error {
	actions, err := json.Marshal(cycle.Actions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ongoing_cycles (customer_id, segment, cadence, start_date, end_date, status,
                                    progress, actions, mirror_enabled, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		cycle.CustomerID,
		cycle.Segment,
		cycle.Cadence,
		cycle.StartDate,
		cycle.EndDate,
		cycle.Status,
		cycle.Progress,
		actions,
		cycle.MirrorEnabled,
		cycle.Version,
	).Scan(&cycle.ID, &cycle.CreatedAt, &cycle.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrActiveCycleExists
		}
		return err
	}
	return nil
}

func (r *cycleRepository) GetByID(ctx context.Context, customerID, cycleID string) (*domain.OngoingCycle, error) {
	query := fmt.Sprintf(`SELECT %s FROM ongoing_cycles WHERE customer_id=$1 AND id=$2`, cycleColumns)
	return scanCycle(r.pool.QueryRow(ctx, query, customerID, cycleID))
}

func (r *cycleRepository) ActiveByCustomer(ctx context.Context, customerID string) (*domain.OngoingCycle, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ongoing_cycles
        WHERE customer_id=$1 AND status=$2
        ORDER BY created_at DESC
        LIMIT 1`, cycleColumns)
	cycle, err := scanCycle(r.pool.QueryRow(ctx, query, customerID, domain.CycleStatusInProgress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cycle, err
}

func (r *cycleRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.OngoingCycle, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT %s FROM ongoing_cycles
        WHERE customer_id=$1
        ORDER BY created_at DESC
        LIMIT %d OFFSET %d`, cycleColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCycles(rows)
}

func (r *cycleRepository) ListInProgressMirrored(ctx context.Context) ([]domain.OngoingCycle, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ongoing_cycles
        WHERE status=$1 AND mirror_enabled=TRUE
        ORDER BY customer_id, created_at`, cycleColumns)
	rows, err := r.pool.Query(ctx, query, domain.CycleStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCycles(rows)
}

func (r *cycleRepository) UpdateActions(ctx context.Context, cycle *domain.OngoingCycle, expectedVersion int64) error {
	actions, err := json.Marshal(cycle.Actions)
	if err != nil {
		return err
	}
	const query = `
        UPDATE ongoing_cycles
        SET actions=$1, progress=$2, status=$3, version=version+1, updated_at=NOW()
        WHERE customer_id=$4 AND id=$5 AND version=$6`
	cmd, err := r.pool.Exec(ctx, query,
		actions,
		cycle.Progress,
		cycle.Status,
		cycle.CustomerID,
		cycle.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	cycle.Version = expectedVersion + 1
	return nil
}

func (r *cycleRepository) UpdateStatus(ctx context.Context, customerID, cycleID string, status domain.CycleStatus) error {
	const query = `
        UPDATE ongoing_cycles SET status=$1, updated_at=NOW()
        WHERE customer_id=$2 AND id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, customerID, cycleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCycle(row pgx.Row) (*domain.OngoingCycle, error) {
	var cycle domain.OngoingCycle
	var actionsJSON []byte
	if err := row.Scan(
		&cycle.ID,
		&cycle.CustomerID,
		&cycle.Segment,
		&cycle.Cadence,
		&cycle.StartDate,
		&cycle.EndDate,
		&cycle.Status,
		&cycle.Progress,
		&actionsJSON,
		&cycle.MirrorEnabled,
		&cycle.Version,
		&cycle.CreatedAt,
		&cycle.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(actionsJSON) > 0 {
		if err := json.Unmarshal(actionsJSON, &cycle.Actions); err != nil {
			return nil, err
		}
	}
	return &cycle, nil
}

func scanCycles(rows pgx.Rows) ([]domain.OngoingCycle, error) {
	var result []domain.OngoingCycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cycle)
	}
	return result, rows.Err()
}
