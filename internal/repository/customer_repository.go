package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// CustomerFilter captures listing parameters.
type CustomerFilter struct {
	Status *domain.CustomerStatus
	Tier   *domain.HealthTier
	Limit  int
	Offset int
}

// CustomerRepository encapsulates customer persistence. Customers are created
// out-of-band (CRM sync or manual onboarding) and mutated here by the
// segmentation and bug workflows.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
	UpdateSegment(ctx context.Context, id string, tier domain.HealthTier, reason string, previousTier domain.HealthTier, grace *domain.GracePeriod) error
	SetTierOverride(ctx context.Context, id string, tier domain.HealthTier, reason string, override bool) error
	UpdateBugs(ctx context.Context, id string, bugs []domain.Bug) error
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, name, status, account_type, problem_tags, bugs, linked_team_ids,
       user_count, tier, tier_override, tier_reason, previous_tier, grace, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	bugs, err := json.Marshal(customer.Bugs)
	if err != nil {
		return err
	}
	grace, err := marshalGrace(customer.Grace)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO customers (name, status, account_type, problem_tags, bugs, linked_team_ids,
                               user_count, tier, tier_override, tier_reason, previous_tier, grace)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.Name,
		customer.Status,
		customer.AccountType,
		customer.ProblemTags,
		bugs,
		customer.LinkedTeamIDs,
		customer.UserCount,
		customer.Tier,
		customer.TierOverride,
		customer.TierReason,
		customer.PreviousTier,
		grace,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id=$1`, customerColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanCustomer(row)
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Tier != nil {
		args = append(args, *filter.Tier)
		clauses = append(clauses, fmt.Sprintf("tier=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM customers WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		customerColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *customer)
	}
	return result, rows.Err()
}

func (r *customerRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM customers WHERE status=$1 ORDER BY created_at`, domain.CustomerStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *customerRepository) UpdateSegment(ctx context.Context, id string, tier domain.HealthTier, reason string, previousTier domain.HealthTier, grace *domain.GracePeriod) error {
	graceJSON, err := marshalGrace(grace)
	if err != nil {
		return err
	}
	const query = `
        UPDATE customers SET tier=$1, tier_reason=$2, previous_tier=$3, grace=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query, tier, reason, previousTier, graceJSON, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) SetTierOverride(ctx context.Context, id string, tier domain.HealthTier, reason string, override bool) error {
	const query = `
        UPDATE customers SET tier=$1, tier_reason=$2, tier_override=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, tier, reason, override, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) UpdateBugs(ctx context.Context, id string, bugs []domain.Bug) error {
	payload, err := json.Marshal(bugs)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE customers SET bugs=$1, updated_at=NOW() WHERE id=$2`, payload, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var customer domain.Customer
	var bugsJSON, graceJSON []byte
	if err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.Status,
		&customer.AccountType,
		&customer.ProblemTags,
		&bugsJSON,
		&customer.LinkedTeamIDs,
		&customer.UserCount,
		&customer.Tier,
		&customer.TierOverride,
		&customer.TierReason,
		&customer.PreviousTier,
		&graceJSON,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(bugsJSON) > 0 {
		if err := json.Unmarshal(bugsJSON, &customer.Bugs); err != nil {
			return nil, err
		}
	}
	if len(graceJSON) > 0 {
		var grace domain.GracePeriod
		if err := json.Unmarshal(graceJSON, &grace); err != nil {
			return nil, err
		}
		customer.Grace = &grace
	}
	return &customer, nil
}

func marshalGrace(grace *domain.GracePeriod) ([]byte, error) {
	if grace == nil {
		return nil, nil
	}
	return json.Marshal(grace)
}
