// internal/service/offer/evaluator.go
package offer

import (
	"time"

	"shopcore-service/internal/domain/cart"
	"shopcore-service/internal/domain/offer"
)

// MatchesScope reports whether the cart contains at least one item inside
// the offer's category/brand/product scope. An offer with no scope lists
// applies to everything.
func MatchesScope(o *offer.Offer, items []cart.Item) bool {
	if len(o.Categories) == 0 && len(o.Brands) == 0 && len(o.Products) == 0 {
		return true
	}

	categories := toSet(o.Categories)
	brands := toSet(o.Brands)
	products := toSet(o.Products)

	for _, it := range items {
		if categories[it.Category] || brands[it.Brand] || products[it.ProductID] {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// EligibleFor checks the customer-level gates: role membership and the
// new-customer restriction. An offer with no role list accepts any role.
func EligibleFor(o *offer.Offer, role string, isNewCustomer bool) bool {
	if o.NewCustomerOnly && !isNewCustomer {
		return false
	}
	if len(o.ApplicableUserRoles) == 0 {
		return true
	}
	for _, r := range o.ApplicableUserRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CalculateDiscount computes the cart-subtotal discount for a valid offer.
// The caller is expected to have confirmed scope and eligibility already.
// The result is always in [0, cartTotal].
func CalculateDiscount(o *offer.Offer, cartTotal float64, now time.Time) float64 {
	if !o.ValidAt(now) {
		return 0
	}
	if cartTotal < o.MinAmount {
		return 0
	}

	switch o.Type {
	case offer.OfferTypePercentage:
		discount := cartTotal * o.Value / 100
		if o.MaxDiscount.Valid && discount > o.MaxDiscount.Float64 {
			discount = o.MaxDiscount.Float64
		}
		return discount
	case offer.OfferTypeFixed:
		if o.Value > cartTotal {
			return cartTotal
		}
		return o.Value
	case offer.OfferTypeShipping:
		// The shipping waiver is computed by the shipping aggregator,
		// not here; the stored value is 0 by invariant.
		return o.Value
	case offer.OfferTypeBogo:
		// Declared in the data model but item-selection semantics are an
		// extension point; no generic calculation exists yet.
		return 0
	default:
		return 0
	}
}

// evaluate runs the full gate chain and returns the discount plus a reason
// code when the offer does not apply. Inapplicability is a value, not an
// error.
func evaluate(o *offer.Offer, req *offer.ValidateOfferRequest, now time.Time) (bool, float64, string) {
	switch o.StatusAt(now) {
	case offer.OfferStatusInactive:
		return false, 0, offer.ReasonInactive
	case offer.OfferStatusScheduled:
		return false, 0, offer.ReasonScheduled
	case offer.OfferStatusExpired:
		return false, 0, offer.ReasonExpired
	case offer.OfferStatusExhausted:
		return false, 0, offer.ReasonExhausted
	}

	role := req.CustomerRole
	if role == "" {
		role = offer.RoleCustomer
	}
	if o.NewCustomerOnly && !req.IsNewCustomer {
		return false, 0, offer.ReasonNewCustomersOnly
	}
	if !EligibleFor(o, role, req.IsNewCustomer) {
		return false, 0, offer.ReasonRoleNotAllowed
	}
	if !MatchesScope(o, req.Items) {
		return false, 0, offer.ReasonScopeMismatch
	}
	if req.CartSubtotal < o.MinAmount {
		return false, 0, offer.ReasonMinAmountNotMet
	}

	return true, CalculateDiscount(o, req.CartSubtotal, now), ""
}
