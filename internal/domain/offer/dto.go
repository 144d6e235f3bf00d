// internal/domain/offer/dto.go
package offer

import (
	"time"

	"shopcore-service/internal/domain/cart"
)

type CreateOfferRequest struct {
	Code        string    `json:"code" binding:"required"`
	Description string    `json:"description"`
	Type        OfferType `json:"type" binding:"required"`
	Value       float64   `json:"value" binding:"min=0"`

	MinAmount   float64  `json:"min_amount" binding:"min=0"`
	MaxDiscount *float64 `json:"max_discount"`

	IsActive  *bool      `json:"is_active"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	Products   []string `json:"products"`

	UsageLimit     *int32 `json:"usage_limit"`
	UserUsageLimit *int32 `json:"user_usage_limit"`

	NewCustomerOnly     bool     `json:"new_customer_only"`
	ApplicableUserRoles []string `json:"applicable_user_roles"`
}

type UpdateOfferRequest struct {
	Description *string    `json:"description"`
	Type        *OfferType `json:"type"`
	Value       *float64   `json:"value" binding:"omitempty,min=0"`

	MinAmount   *float64 `json:"min_amount" binding:"omitempty,min=0"`
	MaxDiscount *float64 `json:"max_discount"`

	IsActive  *bool      `json:"is_active"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	Products   []string `json:"products"`

	UsageLimit     *int32 `json:"usage_limit"`
	UserUsageLimit *int32 `json:"user_usage_limit"`

	NewCustomerOnly     *bool    `json:"new_customer_only"`
	ApplicableUserRoles []string `json:"applicable_user_roles"`
}

type OfferListFilters struct {
	Type      *OfferType   `form:"type"`
	Status    *OfferStatus `form:"status"`
	Search    string       `form:"search"`
	Page      int          `form:"page"`
	PageSize  int          `form:"page_size" binding:"omitempty,max=100"`
	SortBy    string       `form:"sort_by"` // code, created_at, usage_count
	SortOrder string       `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// OfferView is an Offer plus its derived fields, for API responses.
type OfferView struct {
	Offer
	Status          OfferStatus `json:"status"`
	RemainingUsage  *int32      `json:"remaining_usage,omitempty"`
	UsagePercentage float64     `json:"usage_percentage"`
}

// NewOfferView computes the derived fields at read time.
func NewOfferView(o *Offer, now time.Time) OfferView {
	v := OfferView{
		Offer:           *o,
		Status:          o.StatusAt(now),
		UsagePercentage: o.UsagePercentage(),
	}
	if remaining, capped := o.RemainingUsage(); capped {
		v.RemainingUsage = &remaining
	}
	return v
}

type OfferListResponse struct {
	Offers     []OfferView `json:"offers"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

type OfferStats struct {
	OfferID           int64        `json:"offer_id"`
	Code              string       `json:"code"`
	Status            OfferStatus  `json:"status"`
	UsageCount        int32        `json:"usage_count"`
	UsageLimit        *int32       `json:"usage_limit,omitempty"`
	RemainingUsage    *int32       `json:"remaining_usage,omitempty"`
	UsagePercentage   float64      `json:"usage_percentage"`
	RecentRedemptions []Redemption `json:"recent_redemptions"`
}

// Validation reason codes. "Coupon doesn't apply" is an expected outcome,
// reported as a value rather than an error.
const (
	ReasonNotFound         = "not_found"
	ReasonInactive         = "inactive"
	ReasonScheduled        = "scheduled"
	ReasonExpired          = "expired"
	ReasonExhausted        = "exhausted"
	ReasonMinAmountNotMet  = "min_amount_not_met"
	ReasonScopeMismatch    = "scope_mismatch"
	ReasonRoleNotAllowed   = "role_not_allowed"
	ReasonNewCustomersOnly = "new_customers_only"
	ReasonUserLimitReached = "user_limit_reached"
)

type ValidateOfferRequest struct {
	Code          string      `json:"code" binding:"required"`
	CartSubtotal  float64     `json:"cart_subtotal" binding:"min=0"`
	Items         []cart.Item `json:"items"`
	CustomerRole  string      `json:"customer_role"`
	IsNewCustomer bool        `json:"is_new_customer"`
}

type ValidationResult struct {
	Applies  bool    `json:"applies"`
	Discount float64 `json:"discount"`
	Reason   string  `json:"reason,omitempty"`
	Code     string  `json:"code"`
}

type RedeemOfferRequest struct {
	Code          string      `json:"code" binding:"required"`
	CartSubtotal  float64     `json:"cart_subtotal" binding:"min=0"`
	Items         []cart.Item `json:"items"`
	OrderID       string      `json:"order_id"`
	CustomerID    int64       `json:"-"`
	CustomerRole  string      `json:"-"`
	IsNewCustomer bool        `json:"is_new_customer"`
}

type RedemptionResult struct {
	ValidationResult
	Reference string `json:"reference,omitempty"`
}
