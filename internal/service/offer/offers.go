// internal/service/offer/offers.go
package offer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopcore-service/internal/domain/offer"
	xerrors "shopcore-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Repos required by the service (interfaces to allow mocking)
type OfferRepository interface {
	Create(ctx context.Context, o *offer.Offer) error
	FindByID(ctx context.Context, id int64) (*offer.Offer, error)
	FindByCode(ctx context.Context, code string) (*offer.Offer, error)
	List(ctx context.Context, filters *offer.OfferListFilters) ([]offer.Offer, int64, error)
	Update(ctx context.Context, o *offer.Offer) error
	Deactivate(ctx context.Context, id int64) error
	IncrementUsageTx(ctx context.Context, tx pgx.Tx, offerID int64) error
}

type RedemptionRepository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, red *offer.Redemption) error
	CountByOfferAndCustomerTx(ctx context.Context, tx pgx.Tx, offerID, customerID int64) (int64, error)
	ListByOffer(ctx context.Context, offerID int64, limit int) ([]offer.Redemption, error)
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Cache interface {
	Get(ctx context.Context, code string) *offer.Offer
	Set(ctx context.Context, o *offer.Offer)
	Invalidate(ctx context.Context, code string)
}

type OfferService struct {
	offers      OfferRepository
	redemptions RedemptionRepository
	db          TxBeginner
	cache       Cache
	logger      *zap.Logger
	now         func() time.Time
}

func NewOfferService(offers OfferRepository, redemptions RedemptionRepository, db TxBeginner, cache Cache, logger *zap.Logger) *OfferService {
	return &OfferService{
		offers:      offers,
		redemptions: redemptions,
		db:          db,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// NormalizeCode uppercases a candidate code so lookups match the stored form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ========== Admin CRUD ==========

// CreateOffer validates and persists a new offer record.
func (s *OfferService) CreateOffer(ctx context.Context, req *offer.CreateOfferRequest) (*offer.OfferView, error) {
	now := s.now()

	o := &offer.Offer{
		Code:                NormalizeCode(req.Code),
		Description:         sql.NullString{String: req.Description, Valid: req.Description != ""},
		Type:                req.Type,
		Value:               req.Value,
		MinAmount:           req.MinAmount,
		IsActive:            true,
		StartDate:           now,
		Categories:          req.Categories,
		Brands:              req.Brands,
		Products:            req.Products,
		UserUsageLimit:      1,
		NewCustomerOnly:     req.NewCustomerOnly,
		ApplicableUserRoles: req.ApplicableUserRoles,
	}

	if req.MaxDiscount != nil {
		o.MaxDiscount = sql.NullFloat64{Float64: *req.MaxDiscount, Valid: true}
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		o.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		o.EndDate = sql.NullTime{Time: *req.EndDate, Valid: true}
	}
	if req.UsageLimit != nil {
		o.UsageLimit = sql.NullInt32{Int32: *req.UsageLimit, Valid: true}
	}
	if req.UserUsageLimit != nil {
		o.UserUsageLimit = *req.UserUsageLimit
	}
	if len(o.ApplicableUserRoles) == 0 {
		o.ApplicableUserRoles = []string{offer.RoleCustomer}
	}

	if err := o.ValidateRecord(); err != nil {
		return nil, err
	}

	if err := s.offers.Create(ctx, o); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: offer code %s already exists", xerrors.ErrDuplicateEntry, o.Code)
		}
		s.logger.Error("failed to create offer", zap.Error(err))
		return nil, err
	}

	s.logger.Info("offer created",
		zap.Int64("offer_id", o.ID),
		zap.String("code", o.Code),
		zap.String("type", string(o.Type)),
	)

	view := offer.NewOfferView(o, now)
	return &view, nil
}

// GetOffer retrieves an offer by ID with derived fields.
func (s *OfferService) GetOffer(ctx context.Context, id int64) (*offer.OfferView, error) {
	o, err := s.offers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := offer.NewOfferView(o, s.now())
	return &view, nil
}

// GetOfferByCode retrieves an offer by code, matched case-insensitively.
func (s *OfferService) GetOfferByCode(ctx context.Context, code string) (*offer.OfferView, error) {
	o, err := s.lookup(ctx, NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	view := offer.NewOfferView(o, s.now())
	return &view, nil
}

// ListOffers retrieves offers with filters and pagination.
func (s *OfferService) ListOffers(ctx context.Context, filters *offer.OfferListFilters) (*offer.OfferListResponse, error) {
	offers, total, err := s.offers.List(ctx, filters)
	if err != nil {
		s.logger.Error("failed to list offers", zap.Error(err))
		return nil, err
	}

	now := s.now()
	views := make([]offer.OfferView, 0, len(offers))
	for i := range offers {
		views = append(views, offer.NewOfferView(&offers[i], now))
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &offer.OfferListResponse{
		Offers:     views,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateOffer applies a partial update and revalidates the record.
func (s *OfferService) UpdateOffer(ctx context.Context, id int64, req *offer.UpdateOfferRequest) (*offer.OfferView, error) {
	o, err := s.offers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		o.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.Type != nil {
		o.Type = *req.Type
	}
	if req.Value != nil {
		o.Value = *req.Value
	}
	if req.MinAmount != nil {
		o.MinAmount = *req.MinAmount
	}
	if req.MaxDiscount != nil {
		o.MaxDiscount = sql.NullFloat64{Float64: *req.MaxDiscount, Valid: *req.MaxDiscount > 0}
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		o.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		o.EndDate = sql.NullTime{Time: *req.EndDate, Valid: true}
	}
	if req.Categories != nil {
		o.Categories = req.Categories
	}
	if req.Brands != nil {
		o.Brands = req.Brands
	}
	if req.Products != nil {
		o.Products = req.Products
	}
	if req.UsageLimit != nil {
		o.UsageLimit = sql.NullInt32{Int32: *req.UsageLimit, Valid: true}
	}
	if req.UserUsageLimit != nil {
		o.UserUsageLimit = *req.UserUsageLimit
	}
	if req.NewCustomerOnly != nil {
		o.NewCustomerOnly = *req.NewCustomerOnly
	}
	if req.ApplicableUserRoles != nil {
		o.ApplicableUserRoles = req.ApplicableUserRoles
	}

	if err := o.ValidateRecord(); err != nil {
		return nil, err
	}

	if err := s.offers.Update(ctx, o); err != nil {
		s.logger.Error("failed to update offer", zap.Int64("offer_id", id), zap.Error(err))
		return nil, err
	}

	s.cache.Invalidate(ctx, o.Code)

	view := offer.NewOfferView(o, s.now())
	return &view, nil
}

// DeactivateOffer soft-deletes an offer. Records are never physically removed.
func (s *OfferService) DeactivateOffer(ctx context.Context, id int64) error {
	o, err := s.offers.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.offers.Deactivate(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, o.Code)
	s.logger.Info("offer deactivated", zap.Int64("offer_id", id), zap.String("code", o.Code))
	return nil
}

// GetOfferStats reports usage of an offer with its derived fields.
func (s *OfferService) GetOfferStats(ctx context.Context, id int64) (*offer.OfferStats, error) {
	o, err := s.offers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := &offer.OfferStats{
		OfferID:         o.ID,
		Code:            o.Code,
		Status:          o.StatusAt(now),
		UsageCount:      o.UsageCount,
		UsagePercentage: o.UsagePercentage(),
	}
	if o.UsageLimit.Valid {
		limit := o.UsageLimit.Int32
		stats.UsageLimit = &limit
	}
	if remaining, capped := o.RemainingUsage(); capped {
		stats.RemainingUsage = &remaining
	}

	recent, err := s.redemptions.ListByOffer(ctx, o.ID, 10)
	if err != nil {
		s.logger.Warn("failed to list recent redemptions", zap.Int64("offer_id", o.ID), zap.Error(err))
		recent = []offer.Redemption{}
	}
	stats.RecentRedemptions = recent

	return stats, nil
}

// ========== Evaluation ==========

// Validate decides whether a code applies to a cart and computes the
// discount. "Does not apply" is an expected outcome, reported with a reason
// code rather than an error.
func (s *OfferService) Validate(ctx context.Context, req *offer.ValidateOfferRequest) (*offer.ValidationResult, error) {
	code := NormalizeCode(req.Code)
	result := &offer.ValidationResult{Code: code}

	o, err := s.lookup(ctx, code)
	if errors.Is(err, xerrors.ErrNotFound) {
		result.Reason = offer.ReasonNotFound
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	applies, discount, reason := evaluate(o, req, s.now())
	result.Applies = applies
	result.Discount = discount
	result.Reason = reason
	return result, nil
}

// Redeem validates the offer and, when it applies, consumes one use
// atomically: the global conditional increment, the per-customer limit check
// and the redemption insert share one transaction. A redemption that loses
// the race for the last remaining use gets ErrExhausted.
func (s *OfferService) Redeem(ctx context.Context, req *offer.RedeemOfferRequest) (*offer.RedemptionResult, error) {
	code := NormalizeCode(req.Code)
	result := &offer.RedemptionResult{ValidationResult: offer.ValidationResult{Code: code}}

	o, err := s.lookup(ctx, code)
	if errors.Is(err, xerrors.ErrNotFound) {
		result.Reason = offer.ReasonNotFound
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	validateReq := &offer.ValidateOfferRequest{
		Code:          code,
		CartSubtotal:  req.CartSubtotal,
		Items:         req.Items,
		CustomerRole:  req.CustomerRole,
		IsNewCustomer: req.IsNewCustomer,
	}
	applies, discount, reason := evaluate(o, validateReq, now)
	if !applies {
		result.Reason = reason
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// Conditional increment first: it also takes the offer row lock, which
	// serializes the per-customer count below for the same offer.
	if err := s.offers.IncrementUsageTx(ctx, tx, o.ID); err != nil {
		if errors.Is(err, xerrors.ErrExhausted) {
			s.cache.Invalidate(ctx, code)
			return nil, err
		}
		return nil, err
	}

	if o.UserUsageLimit > 0 {
		used, err := s.redemptions.CountByOfferAndCustomerTx(ctx, tx, o.ID, req.CustomerID)
		if err != nil {
			return nil, err
		}
		if used >= int64(o.UserUsageLimit) {
			// Rollback undoes the increment taken above.
			result.Reason = offer.ReasonUserLimitReached
			return result, nil
		}
	}

	red := &offer.Redemption{
		Reference:  ulid.Make().String(),
		OfferID:    o.ID,
		CustomerID: req.CustomerID,
		OrderID:    sql.NullString{String: req.OrderID, Valid: req.OrderID != ""},
		Discount:   discount,
		RedeemedAt: now,
	}
	if err := s.redemptions.CreateWithTx(ctx, tx, red); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit: %w", err)
	}
	committed = true

	s.cache.Invalidate(ctx, code)

	s.logger.Info("offer redeemed",
		zap.String("code", code),
		zap.Int64("customer_id", req.CustomerID),
		zap.String("reference", red.Reference),
		zap.Float64("discount", discount),
	)

	result.Applies = true
	result.Discount = discount
	result.Reference = red.Reference
	return result, nil
}

// lookup reads an offer through the cache by its normalized code.
func (s *OfferService) lookup(ctx context.Context, code string) (*offer.Offer, error) {
	if o := s.cache.Get(ctx, code); o != nil {
		return o, nil
	}

	o, err := s.offers.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, o)
	return o, nil
}
