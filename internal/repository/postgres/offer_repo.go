// internal/repository/postgres/offer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopcore-service/internal/domain/offer"
	xerrors "shopcore-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OfferRepository struct {
	db *pgxpool.Pool
}

func NewOfferRepository(db *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{db: db}
}

const offerColumns = `id, code, description, type, value, min_amount, max_discount,
	is_active, start_date, end_date, categories, brands, products,
	usage_limit, usage_count, user_usage_limit,
	new_customer_only, applicable_user_roles, created_at, updated_at`

// Create inserts a new offer. The code must already be normalized to
// uppercase by the service layer.
func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	query := `
		INSERT INTO offers (
			code, description, type, value, min_amount, max_discount,
			is_active, start_date, end_date, categories, brands, products,
			usage_limit, user_usage_limit, new_customer_only, applicable_user_roles
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, usage_count, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		o.Code, o.Description, o.Type, o.Value, o.MinAmount, o.MaxDiscount,
		o.IsActive, o.StartDate, o.EndDate, o.Categories, o.Brands, o.Products,
		o.UsageLimit, o.UserUsageLimit, o.NewCustomerOnly, o.ApplicableUserRoles,
	).Scan(&o.ID, &o.UsageCount, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return xerrors.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create offer: %w", err)
	}

	return nil
}

// FindByID retrieves an offer by ID
func (r *OfferRepository) FindByID(ctx context.Context, id int64) (*offer.Offer, error) {
	query := fmt.Sprintf(`SELECT %s FROM offers WHERE id = $1`, offerColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindByCode retrieves an offer by its uppercase code
func (r *OfferRepository) FindByCode(ctx context.Context, code string) (*offer.Offer, error) {
	query := fmt.Sprintf(`SELECT %s FROM offers WHERE code = $1`, offerColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, code))
}

func (r *OfferRepository) scanOne(row pgx.Row) (*offer.Offer, error) {
	var o offer.Offer
	err := row.Scan(
		&o.ID, &o.Code, &o.Description, &o.Type, &o.Value, &o.MinAmount, &o.MaxDiscount,
		&o.IsActive, &o.StartDate, &o.EndDate, &o.Categories, &o.Brands, &o.Products,
		&o.UsageLimit, &o.UsageCount, &o.UserUsageLimit,
		&o.NewCustomerOnly, &o.ApplicableUserRoles, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan offer: %w", err)
	}
	return &o, nil
}

// List retrieves offers with filters
func (r *OfferRepository) List(ctx context.Context, filters *offer.OfferListFilters) ([]offer.Offer, int64, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR description ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	// Status is derived, but the non-time-dependent part can be pushed down.
	if filters.Status != nil {
		switch *filters.Status {
		case offer.OfferStatusInactive:
			conditions = append(conditions, "is_active = FALSE")
		case offer.OfferStatusScheduled:
			conditions = append(conditions, "is_active = TRUE AND start_date > NOW()")
		case offer.OfferStatusExpired:
			conditions = append(conditions, "is_active = TRUE AND end_date IS NOT NULL AND end_date < NOW()")
		case offer.OfferStatusExhausted:
			conditions = append(conditions, "is_active = TRUE AND usage_limit IS NOT NULL AND usage_count >= usage_limit")
		case offer.OfferStatusActive:
			conditions = append(conditions,
				"is_active = TRUE AND start_date <= NOW()",
				"(end_date IS NULL OR end_date >= NOW())",
				"(usage_limit IS NULL OR usage_count < usage_limit)",
			)
		}
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM offers WHERE %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	sortBy := "created_at"
	switch filters.SortBy {
	case "code", "usage_count", "created_at":
		sortBy = filters.SortBy
	}
	sortOrder := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM offers
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, offerColumns, whereClause, sortBy, sortOrder, argPos, argPos+1)

	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := []offer.Offer{}
	for rows.Next() {
		var o offer.Offer
		err := rows.Scan(
			&o.ID, &o.Code, &o.Description, &o.Type, &o.Value, &o.MinAmount, &o.MaxDiscount,
			&o.IsActive, &o.StartDate, &o.EndDate, &o.Categories, &o.Brands, &o.Products,
			&o.UsageLimit, &o.UsageCount, &o.UserUsageLimit,
			&o.NewCustomerOnly, &o.ApplicableUserRoles, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}

	return offers, total, nil
}

// Update rewrites the mutable fields of an offer. UsageCount is deliberately
// excluded; it only moves through IncrementUsageTx.
func (r *OfferRepository) Update(ctx context.Context, o *offer.Offer) error {
	query := `
		UPDATE offers
		SET description = $1, type = $2, value = $3, min_amount = $4, max_discount = $5,
		    is_active = $6, start_date = $7, end_date = $8,
		    categories = $9, brands = $10, products = $11,
		    usage_limit = $12, user_usage_limit = $13,
		    new_customer_only = $14, applicable_user_roles = $15, updated_at = $16
		WHERE id = $17
	`

	result, err := r.db.Exec(
		ctx, query,
		o.Description, o.Type, o.Value, o.MinAmount, o.MaxDiscount,
		o.IsActive, o.StartDate, o.EndDate,
		o.Categories, o.Brands, o.Products,
		o.UsageLimit, o.UserUsageLimit,
		o.NewCustomerOnly, o.ApplicableUserRoles, time.Now(),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// Deactivate soft-deletes an offer. Offers are never physically removed.
func (r *OfferRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx,
		`UPDATE offers SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate offer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// IncrementUsageTx consumes one use of the offer inside tx. The limit check
// and the increment are a single statement so two concurrent redemptions can
// never both take the last remaining use. Zero rows affected means the limit
// was reached by a concurrent redemption.
func (r *OfferRepository) IncrementUsageTx(ctx context.Context, tx pgx.Tx, offerID int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE offers
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
	`, offerID)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrExhausted
	}
	return nil
}
