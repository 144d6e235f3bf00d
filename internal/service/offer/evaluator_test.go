package offer

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shopcore-service/internal/domain/cart"
	"shopcore-service/internal/domain/offer"
)

var evalNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func activeOffer(typ offer.OfferType, value float64) *offer.Offer {
	return &offer.Offer{
		Code:      "TESTCODE",
		Type:      typ,
		Value:     value,
		IsActive:  true,
		StartDate: evalNow.Add(-24 * time.Hour),
	}
}

func TestCalculateDiscount(t *testing.T) {
	t.Run("percentage capped by max discount", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 20)
		o.MinAmount = 500
		o.MaxDiscount = sql.NullFloat64{Float64: 200, Valid: true}
		assert.Equal(t, 200.0, CalculateDiscount(o, 1000, evalNow))
	})

	t.Run("below min amount yields zero", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 20)
		o.MinAmount = 500
		assert.Zero(t, CalculateDiscount(o, 400, evalNow))
	})

	t.Run("cart exactly at min amount qualifies", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.MinAmount = 500
		assert.Equal(t, 50.0, CalculateDiscount(o, 500, evalNow))
	})

	t.Run("fixed capped at cart total", func(t *testing.T) {
		o := activeOffer(offer.OfferTypeFixed, 150)
		assert.Equal(t, 100.0, CalculateDiscount(o, 100, evalNow))
	})

	t.Run("fixed below cart total", func(t *testing.T) {
		o := activeOffer(offer.OfferTypeFixed, 150)
		assert.Equal(t, 150.0, CalculateDiscount(o, 400, evalNow))
	})

	t.Run("full percentage zeroes the cart", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 100)
		assert.Equal(t, 750.0, CalculateDiscount(o, 750, evalNow))
	})

	t.Run("shipping type returns stored zero", func(t *testing.T) {
		o := activeOffer(offer.OfferTypeShipping, 0)
		assert.Zero(t, CalculateDiscount(o, 1000, evalNow))
	})

	t.Run("bogo has no generic calculation", func(t *testing.T) {
		o := activeOffer(offer.OfferTypeBogo, 0)
		assert.Zero(t, CalculateDiscount(o, 1000, evalNow))
	})

	t.Run("invalid offer yields zero", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 20)
		o.IsActive = false
		assert.Zero(t, CalculateDiscount(o, 1000, evalNow))
	})

	t.Run("result bounded by cart total", func(t *testing.T) {
		for _, value := range []float64{1, 25, 50, 99, 100} {
			o := activeOffer(offer.OfferTypePercentage, value)
			d := CalculateDiscount(o, 820, evalNow)
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 820.0)
		}
	})
}

func TestMatchesScope(t *testing.T) {
	items := []cart.Item{
		{ProductID: "p1", Category: "protein", Brand: "optimus"},
		{ProductID: "p2", Category: "skincare", Brand: "adrar"},
	}

	t.Run("unscoped offer matches everything", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		assert.True(t, MatchesScope(o, items))
		assert.True(t, MatchesScope(o, nil))
	})

	t.Run("category overlap", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.Categories = []string{"protein"}
		assert.True(t, MatchesScope(o, items))
	})

	t.Run("brand overlap", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.Brands = []string{"adrar"}
		assert.True(t, MatchesScope(o, items))
	})

	t.Run("product overlap", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.Products = []string{"p2"}
		assert.True(t, MatchesScope(o, items))
	})

	t.Run("no overlap", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.Categories = []string{"melhaf"}
		o.Brands = []string{"gnc"}
		assert.False(t, MatchesScope(o, items))
	})

	t.Run("scoped offer with empty cart", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.Categories = []string{"protein"}
		assert.False(t, MatchesScope(o, nil))
	})
}

func TestEligibleFor(t *testing.T) {
	t.Run("no role list accepts anyone", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		assert.True(t, EligibleFor(o, offer.RoleAdmin, false))
	})

	t.Run("role must be listed", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.ApplicableUserRoles = []string{offer.RoleCustomer}
		assert.True(t, EligibleFor(o, offer.RoleCustomer, false))
		assert.False(t, EligibleFor(o, offer.RoleAdmin, false))
	})

	t.Run("new customer gate", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		o.NewCustomerOnly = true
		assert.True(t, EligibleFor(o, offer.RoleCustomer, true))
		assert.False(t, EligibleFor(o, offer.RoleCustomer, false))
	})
}

func TestEvaluateReasons(t *testing.T) {
	req := func() *offer.ValidateOfferRequest {
		return &offer.ValidateOfferRequest{
			Code:         "TESTCODE",
			CartSubtotal: 1000,
			Items:        []cart.Item{{ProductID: "p1", Category: "protein", Price: 500, Quantity: 2}},
			CustomerRole: offer.RoleCustomer,
		}
	}

	tests := []struct {
		name   string
		mutate func(*offer.Offer, *offer.ValidateOfferRequest)
		reason string
	}{
		{"inactive", func(o *offer.Offer, r *offer.ValidateOfferRequest) { o.IsActive = false }, offer.ReasonInactive},
		{"scheduled", func(o *offer.Offer, r *offer.ValidateOfferRequest) { o.StartDate = evalNow.Add(time.Hour) }, offer.ReasonScheduled},
		{"expired", func(o *offer.Offer, r *offer.ValidateOfferRequest) {
			o.EndDate = sql.NullTime{Time: evalNow.Add(-time.Hour), Valid: true}
		}, offer.ReasonExpired},
		{"exhausted", func(o *offer.Offer, r *offer.ValidateOfferRequest) {
			o.UsageLimit = sql.NullInt32{Int32: 1, Valid: true}
			o.UsageCount = 1
		}, offer.ReasonExhausted},
		{"new customers only", func(o *offer.Offer, r *offer.ValidateOfferRequest) { o.NewCustomerOnly = true }, offer.ReasonNewCustomersOnly},
		{"role not allowed", func(o *offer.Offer, r *offer.ValidateOfferRequest) {
			o.ApplicableUserRoles = []string{offer.RoleAdmin}
		}, offer.ReasonRoleNotAllowed},
		{"scope mismatch", func(o *offer.Offer, r *offer.ValidateOfferRequest) { o.Categories = []string{"melhaf"} }, offer.ReasonScopeMismatch},
		{"below min amount", func(o *offer.Offer, r *offer.ValidateOfferRequest) { o.MinAmount = 2000 }, offer.ReasonMinAmountNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := activeOffer(offer.OfferTypePercentage, 10)
			r := req()
			tt.mutate(o, r)
			applies, discount, reason := evaluate(o, r, evalNow)
			assert.False(t, applies)
			assert.Zero(t, discount)
			assert.Equal(t, tt.reason, reason)
		})
	}

	t.Run("applies", func(t *testing.T) {
		o := activeOffer(offer.OfferTypePercentage, 10)
		applies, discount, reason := evaluate(o, req(), evalNow)
		assert.True(t, applies)
		assert.Equal(t, 100.0, discount)
		assert.Empty(t, reason)
	})
}
