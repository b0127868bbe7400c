package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
	"github.com/fairyhunter13/coupon-discount-engine/pkg/database"
)

// RedemptionPoolInterface defines the database operations needed by RedemptionRepository.
type RedemptionPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RedemptionRepository provides data access for coupon redemptions using pgx.
type RedemptionRepository struct {
	pool RedemptionPoolInterface
}

// NewRedemptionRepository creates a new RedemptionRepository with the given pool.
func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// NewRedemptionRepositoryWithPool creates a new RedemptionRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedemptionRepositoryWithPool(pool RedemptionPoolInterface) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// GetOrdersByCoupon retrieves the order IDs a coupon was redeemed on, oldest first.
// On success, returns an empty slice (not nil) when no redemptions exist.
func (r *RedemptionRepository) GetOrdersByCoupon(ctx context.Context, code string) ([]string, error) {
	query := `SELECT order_id FROM redemptions WHERE coupon_code = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("get redemptions for coupon %s: %w", code, err)
	}
	defer rows.Close()

	orders := []string{}
	for rows.Next() {
		var orderID string
		if err := rows.Scan(&orderID); err != nil {
			return nil, fmt.Errorf("scan redemption order_id: %w", err)
		}
		orders = append(orders, orderID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption rows: %w", err)
	}

	return orders, nil
}

// Insert inserts a redemption record within a transaction.
// Returns service.ErrAlreadyRedeemed if the coupon was already redeemed for the order.
func (r *RedemptionRepository) Insert(ctx context.Context, tx database.TxQuerier, code, orderID string, discountAmount float64) error {
	query := `INSERT INTO redemptions (coupon_code, order_id, discount_amount) VALUES ($1, $2, $3)`

	_, err := tx.Exec(ctx, query, code, orderID, discountAmount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return service.ErrAlreadyRedeemed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}
