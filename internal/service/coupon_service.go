package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-discount-engine/internal/discount"
	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	GetCouponForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	IncrementUsage(ctx context.Context, tx database.TxQuerier, code string) error
}

// RedemptionRepositoryInterface defines the interface for redemption data access.
type RedemptionRepositoryInterface interface {
	GetOrdersByCoupon(ctx context.Context, code string) ([]string, error)
	Insert(ctx context.Context, tx database.TxQuerier, code, orderID string, discountAmount float64) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CouponService provides business logic for coupon operations.
type CouponService struct {
	pool           TxBeginner
	couponRepo     CouponRepositoryInterface
	redemptionRepo RedemptionRepositoryInterface
	calc           *discount.Calculator
	now            func() time.Time
}

// NewCouponService creates a new CouponService with the given pool and repositories.
func NewCouponService(pool *pgxpool.Pool, couponRepo CouponRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, calc *discount.Calculator) *CouponService {
	return NewCouponServiceWithTxBeginner(pool, couponRepo, redemptionRepo, calc)
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom TxBeginner.
// Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, couponRepo CouponRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, calc *discount.Calculator) *CouponService {
	if calc == nil {
		calc = discount.New()
	}
	return &CouponService{
		pool:           pool,
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		calc:           calc,
		now:            time.Now,
	}
}

// Create creates a new coupon from the request.
// Returns ErrCouponExists if a coupon with the same code already exists.
// Returns ErrInvalidRequest if request data is nil or incomplete.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) error {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.DiscountPercent == nil {
		return ErrInvalidRequest
	}
	code := model.NormalizeCode(req.Code)
	if code == "" {
		return ErrInvalidRequest
	}

	couponType := req.Type
	if couponType == "" {
		couponType = model.CouponTypePercentage
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	coupon := &model.Coupon{
		Code:            code,
		DiscountPercent: *req.DiscountPercent,
		Type:            couponType,
		MinOrderValue:   req.MinOrderValue,
		MaxDiscount:     req.MaxDiscount,
		IsActive:        isActive,
		ExpiryDate:      req.ExpiryDate,
		Description:     req.Description,
		MaxUses:         req.MaxUses,
	}
	return s.couponRepo.Insert(ctx, coupon)
}

// Lookup returns the stored coupon for code.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) Lookup(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, model.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by code with the orders it was redeemed on.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.CouponDetailResponse, error) {
	coupon, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	orders, err := s.redemptionRepo.GetOrdersByCoupon(ctx, coupon.Code)
	if err != nil {
		return nil, fmt.Errorf("get redemptions: %w", err)
	}

	return &model.CouponDetailResponse{
		Coupon:         *coupon,
		RedeemedOrders: orders,
	}, nil
}

// Validate checks whether code is eligible for an order of orderValue.
// Rejections are reported in the response; the error is non-nil only when
// the coupon could not be loaded.
func (s *CouponService) Validate(ctx context.Context, req model.ValidateCouponRequest) (*model.ValidateCouponResponse, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, model.NormalizeCode(req.Code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return &model.ValidateCouponResponse{IsValid: false, Error: MessageInvalidCode}, nil
	}

	if err := CheckEligibility(coupon, req.OrderValue, s.now()); err != nil {
		log.Debug().
			Err(err).
			Str("coupon_code", coupon.Code).
			Float64("order_value", req.OrderValue).
			Msg("coupon rejected")
		return &model.ValidateCouponResponse{
			IsValid: false,
			Error:   RejectionMessage(err, coupon, s.calc.Currency()),
		}, nil
	}

	return &model.ValidateCouponResponse{IsValid: true, Coupon: coupon}, nil
}

// Redeem atomically consumes one use of a coupon for an order.
// Uses SELECT FOR UPDATE to lock the coupon row during the transaction.
// Returns:
//   - ErrCouponNotFound if the coupon doesn't exist
//   - an eligibility error (ErrCouponInactive, ErrCouponExpired, ErrMinOrderNotMet, ErrUsageLimitReached)
//   - ErrAlreadyRedeemed if the coupon was already redeemed for this order
func (s *CouponService) Redeem(ctx context.Context, req *model.RedeemCouponRequest) (*model.RedeemCouponResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	code := model.NormalizeCode(req.Code)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the coupon row (SELECT FOR UPDATE)
	coupon, err := s.couponRepo.GetCouponForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}

	// 2. Re-check eligibility against the locked row
	if err := CheckEligibility(coupon, req.OrderValue, s.now()); err != nil {
		return nil, err
	}

	// 3. Insert redemption (UNIQUE constraint catches duplicates)
	result := s.calc.ApplyCouponDiscount(req.OrderValue, coupon)
	err = s.redemptionRepo.Insert(ctx, tx, code, req.OrderID, result.DiscountAmount)
	if err != nil {
		if errors.Is(err, ErrAlreadyRedeemed) {
			return nil, ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("insert redemption: %w", err)
	}

	// 4. Increment usage
	if err := s.couponRepo.IncrementUsage(ctx, tx, code); err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &model.RedeemCouponResponse{
		Code:     code,
		OrderID:  req.OrderID,
		Discount: result,
	}, nil
}
