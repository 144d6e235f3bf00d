// internal/repository/postgres/redemption_repo.go
package postgres

import (
	"context"
	"fmt"

	"shopcore-service/internal/domain/offer"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RedemptionRepository struct {
	db *pgxpool.Pool
}

func NewRedemptionRepository(db *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// CreateWithTx records a redemption within a transaction
func (r *RedemptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, red *offer.Redemption) error {
	query := `
		INSERT INTO offer_redemptions (
			reference, offer_id, customer_id, order_id, discount, redeemed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		red.Reference, red.OfferID, red.CustomerID, red.OrderID, red.Discount, red.RedeemedAt,
	).Scan(&red.ID, &red.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}

	return nil
}

// CountByOfferAndCustomerTx counts a customer's past redemptions of an offer.
// Called after IncrementUsageTx, which holds the offer row lock, so
// concurrent redemptions of the same offer are serialized here.
func (r *RedemptionRepository) CountByOfferAndCustomerTx(ctx context.Context, tx pgx.Tx, offerID, customerID int64) (int64, error) {
	var count int64
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM offer_redemptions WHERE offer_id = $1 AND customer_id = $2`,
		offerID, customerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count redemptions: %w", err)
	}
	return count, nil
}

// ListByOffer retrieves recent redemptions of an offer, newest first.
func (r *RedemptionRepository) ListByOffer(ctx context.Context, offerID int64, limit int) ([]offer.Redemption, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, reference, offer_id, customer_id, order_id, discount, redeemed_at, created_at
		FROM offer_redemptions
		WHERE offer_id = $1
		ORDER BY redeemed_at DESC
		LIMIT $2
	`, offerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []offer.Redemption{}
	for rows.Next() {
		var red offer.Redemption
		err := rows.Scan(
			&red.ID, &red.Reference, &red.OfferID, &red.CustomerID,
			&red.OrderID, &red.Discount, &red.RedeemedAt, &red.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}

	return redemptions, nil
}
