package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
	"github.com/fairyhunter13/coupon-discount-engine/pkg/database"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// couponColumns is shared by every coupon SELECT so scanCoupon stays in sync.
// Money columns are NUMERIC in the schema and read back as float8.
const couponColumns = `code, discount_percent::float8, type, min_order_value::float8, max_discount::float8,
	is_active, expiry_date, description, used_count, max_uses, created_at`

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Insert inserts a new coupon into the database.
// Returns service.ErrCouponExists if a coupon with the same code already exists.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (code, discount_percent, type, min_order_value, max_discount, is_active, expiry_date, description, max_uses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		coupon.Code, coupon.DiscountPercent, string(coupon.Type), coupon.MinOrderValue, coupon.MaxDiscount,
		coupon.IsActive, coupon.ExpiryDate, coupon.Description, coupon.MaxUses)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by its normalized code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// GetCouponForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetCouponForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", code, err)
	}
	return coupon, nil
}

// IncrementUsage increments the used_count of a coupon by 1.
// Must be called within a transaction after locking the row.
func (r *CouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, code string) error {
	query := `UPDATE coupons SET used_count = used_count + 1 WHERE code = $1`

	_, err := tx.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", code, err)
	}
	return nil
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var coupon model.Coupon
	var couponType string
	err := row.Scan(
		&coupon.Code,
		&coupon.DiscountPercent,
		&couponType,
		&coupon.MinOrderValue,
		&coupon.MaxDiscount,
		&coupon.IsActive,
		&coupon.ExpiryDate,
		&coupon.Description,
		&coupon.UsedCount,
		&coupon.MaxUses,
		&coupon.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	coupon.Type = model.CouponType(couponType)
	return &coupon, nil
}
