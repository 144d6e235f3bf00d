// internal/domain/offer/entity.go
package offer

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	xerrors "shopcore-service/internal/pkg/errors"
)

type OfferType string

const (
	OfferTypePercentage OfferType = "percentage"
	OfferTypeFixed      OfferType = "fixed"
	OfferTypeShipping   OfferType = "shipping"
	OfferTypeBogo       OfferType = "bogo"
)

// OfferStatus is derived from the persisted fields and the clock, never stored.
type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "active"
	OfferStatusInactive  OfferStatus = "inactive"
	OfferStatusScheduled OfferStatus = "scheduled"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusExhausted OfferStatus = "exhausted"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// codePattern: uppercase alphanumeric, 3-20 chars. Codes are normalized to
// uppercase before this is checked.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

// Offer is a discount rule identified by a redeemable code. Offers are never
// hard-deleted, only deactivated.
type Offer struct {
	ID          int64          `json:"id" db:"id"`
	Code        string         `json:"code" db:"code"`
	Description sql.NullString `json:"description,omitempty" db:"description"`
	Type        OfferType      `json:"type" db:"type"`

	// Discount arithmetic. Value is a percentage for percentage offers,
	// a currency amount for fixed offers, and always 0 for shipping offers
	// (the waiver amount comes from the shipping aggregator).
	Value       float64         `json:"value" db:"value"`
	MinAmount   float64         `json:"min_amount" db:"min_amount"`
	MaxDiscount sql.NullFloat64 `json:"max_discount,omitempty" db:"max_discount"`

	// Validity window. IsActive is an admin toggle independent of dates.
	IsActive  bool         `json:"is_active" db:"is_active"`
	StartDate time.Time    `json:"start_date" db:"start_date"`
	EndDate   sql.NullTime `json:"end_date,omitempty" db:"end_date"`

	// Scope. Empty lists mean the offer applies to everything.
	Categories []string `json:"categories,omitempty" db:"categories"`
	Brands     []string `json:"brands,omitempty" db:"brands"`
	Products   []string `json:"products,omitempty" db:"products"`

	// Usage caps. UsageCount only moves through the atomic conditional
	// increment in the repository, never a read-modify-write.
	UsageLimit     sql.NullInt32 `json:"usage_limit,omitempty" db:"usage_limit"`
	UsageCount     int32         `json:"usage_count" db:"usage_count"`
	UserUsageLimit int32         `json:"user_usage_limit" db:"user_usage_limit"`

	// Eligibility
	NewCustomerOnly     bool     `json:"new_customer_only" db:"new_customer_only"`
	ApplicableUserRoles []string `json:"applicable_user_roles" db:"applicable_user_roles"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ValidAt reports whether the offer is currently redeemable: active flag set,
// inside the date window, and not exhausted.
func (o *Offer) ValidAt(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if now.Before(o.StartDate) {
		return false
	}
	if o.EndDate.Valid && now.After(o.EndDate.Time) {
		return false
	}
	if o.UsageLimit.Valid && o.UsageCount >= o.UsageLimit.Int32 {
		return false
	}
	return true
}

// StatusAt derives the reporting status. The inactive flag wins over the
// date/usage checks so an admin-disabled offer is never reported as expired.
func (o *Offer) StatusAt(now time.Time) OfferStatus {
	switch {
	case !o.IsActive:
		return OfferStatusInactive
	case now.Before(o.StartDate):
		return OfferStatusScheduled
	case o.EndDate.Valid && now.After(o.EndDate.Time):
		return OfferStatusExpired
	case o.UsageLimit.Valid && o.UsageCount >= o.UsageLimit.Int32:
		return OfferStatusExhausted
	default:
		return OfferStatusActive
	}
}

// RemainingUsage returns the redemptions left and whether the offer is capped.
func (o *Offer) RemainingUsage() (int32, bool) {
	if !o.UsageLimit.Valid {
		return 0, false
	}
	remaining := o.UsageLimit.Int32 - o.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// UsagePercentage returns consumed usage as a percentage, capped at 100.
// Uncapped offers report 0.
func (o *Offer) UsagePercentage() float64 {
	if !o.UsageLimit.Valid || o.UsageLimit.Int32 == 0 {
		return 0
	}
	pct := float64(o.UsageCount) / float64(o.UsageLimit.Int32) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ValidateRecord checks the structural invariants of an offer record.
// Violations are reported to the admin caller, never silently corrected.
func (o *Offer) ValidateRecord() error {
	if !codePattern.MatchString(o.Code) {
		return fmt.Errorf("%w: code must be 3-20 uppercase alphanumeric characters", xerrors.ErrInvalidInput)
	}
	switch o.Type {
	case OfferTypePercentage:
		if o.Value > 100 {
			return fmt.Errorf("%w: percentage value must not exceed 100", xerrors.ErrInvalidInput)
		}
	case OfferTypeShipping:
		if o.Value != 0 {
			return fmt.Errorf("%w: shipping offers carry no stored value", xerrors.ErrInvalidInput)
		}
	case OfferTypeFixed, OfferTypeBogo:
	default:
		return fmt.Errorf("%w: unknown offer type %q", xerrors.ErrInvalidInput, o.Type)
	}
	if o.Value < 0 {
		return fmt.Errorf("%w: value must be non-negative", xerrors.ErrInvalidInput)
	}
	if o.MinAmount < 0 {
		return fmt.Errorf("%w: min_amount must be non-negative", xerrors.ErrInvalidInput)
	}
	if o.MaxDiscount.Valid && o.MaxDiscount.Float64 <= 0 {
		return fmt.Errorf("%w: max_discount must be greater than zero when set", xerrors.ErrInvalidInput)
	}
	if o.EndDate.Valid && !o.EndDate.Time.After(o.StartDate) {
		return fmt.Errorf("%w: end_date must be after start_date", xerrors.ErrInvalidInput)
	}
	if o.UsageLimit.Valid && o.UsageLimit.Int32 <= 0 {
		return fmt.Errorf("%w: usage_limit must be greater than zero when set", xerrors.ErrInvalidInput)
	}
	if o.UserUsageLimit < 0 {
		return fmt.Errorf("%w: user_usage_limit must be non-negative", xerrors.ErrInvalidInput)
	}
	return nil
}

// Redemption records one consumed use of an offer by a customer.
type Redemption struct {
	ID         int64          `json:"id" db:"id"`
	Reference  string         `json:"reference" db:"reference"`
	OfferID    int64          `json:"offer_id" db:"offer_id"`
	CustomerID int64          `json:"customer_id" db:"customer_id"`
	OrderID    sql.NullString `json:"order_id,omitempty" db:"order_id"`
	Discount   float64        `json:"discount" db:"discount"`
	RedeemedAt time.Time      `json:"redeemed_at" db:"redeemed_at"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
