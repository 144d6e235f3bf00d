package shipping

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopcore-service/internal/carrier"
	"shopcore-service/internal/domain/cart"
	"shopcore-service/internal/domain/shipping"
	xerrors "shopcore-service/internal/pkg/errors"
)

type fakeRateSource struct {
	rates   []shipping.Rate
	err     error
	lastReq carrier.RateRequest
}

func (f *fakeRateSource) Rates(ctx context.Context, req carrier.RateRequest) ([]shipping.Rate, error) {
	f.lastReq = req
	return f.rates, f.err
}

func newAggregator(source RateSource) *AggregatorService {
	return NewAggregatorService(source, Options{
		PickupPostcode:        "110001",
		FreeShippingThreshold: 999,
		DefaultFlatRate:       99,
	}, zap.NewNop())
}

func rate(id int, total float64) shipping.Rate {
	return shipping.Rate{CarrierID: id, CarrierName: fmt.Sprintf("carrier-%d", id), TotalCharge: total}
}

func TestCheapestRate(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, CheapestRate(nil))
		assert.Nil(t, CheapestRate([]shipping.Rate{}))
	})

	t.Run("single rate", func(t *testing.T) {
		r := rate(1, 80)
		got := CheapestRate([]shipping.Rate{r})
		require.NotNil(t, got)
		assert.Equal(t, r, *got)
	})

	t.Run("picks minimum", func(t *testing.T) {
		got := CheapestRate([]shipping.Rate{rate(1, 80), rate(2, 60), rate(3, 95)})
		require.NotNil(t, got)
		assert.Equal(t, 2, got.CarrierID)
	})

	t.Run("ties go to the first encountered", func(t *testing.T) {
		got := CheapestRate([]shipping.Rate{rate(1, 60), rate(2, 60)})
		require.NotNil(t, got)
		assert.Equal(t, 1, got.CarrierID)
	})
}

func TestComputeHybridShipping(t *testing.T) {
	t.Run("over threshold covers the cheapest, customer pays excess", func(t *testing.T) {
		selected := rate(2, 80)
		result := ComputeHybridShipping(HybridInput{
			Subtotal:     1200,
			SelectedRate: &selected,
			AllRates:     []shipping.Rate{rate(1, 60), rate(2, 80)},
			Threshold:    999,
		})
		assert.Equal(t, 60.0, result.CoveredAmount)
		assert.Equal(t, 20.0, result.EffectiveShipping)
		require.NotNil(t, result.CheapestRate)
		assert.Equal(t, 60.0, result.CheapestRate.TotalCharge)
	})

	t.Run("under threshold with no selection falls back to the flat rate", func(t *testing.T) {
		result := ComputeHybridShipping(HybridInput{
			Subtotal:  500,
			AllRates:  []shipping.Rate{},
			Threshold: 999,
			FlatRate:  99,
		})
		assert.Nil(t, result.CheapestRate)
		assert.Zero(t, result.CoveredAmount)
		assert.Equal(t, 99.0, result.EffectiveShipping)
	})

	t.Run("over threshold with no selection ships free", func(t *testing.T) {
		result := ComputeHybridShipping(HybridInput{
			Subtotal:  1500,
			AllRates:  []shipping.Rate{rate(1, 70)},
			Threshold: 999,
		})
		assert.Equal(t, 70.0, result.CoveredAmount)
		assert.Zero(t, result.EffectiveShipping)
	})

	t.Run("selecting the cheapest over threshold costs nothing", func(t *testing.T) {
		cheapest := rate(1, 60)
		result := ComputeHybridShipping(HybridInput{
			Subtotal:     1000,
			SelectedRate: &cheapest,
			AllRates:     []shipping.Rate{cheapest, rate(2, 90)},
			Threshold:    999,
		})
		assert.Zero(t, result.EffectiveShipping)
	})

	t.Run("under threshold the selected rate is paid in full", func(t *testing.T) {
		selected := rate(2, 85)
		result := ComputeHybridShipping(HybridInput{
			Subtotal:     400,
			SelectedRate: &selected,
			AllRates:     []shipping.Rate{rate(1, 60), selected},
			Threshold:    999,
		})
		assert.Zero(t, result.CoveredAmount)
		assert.Equal(t, 85.0, result.EffectiveShipping)
	})

	t.Run("never negative", func(t *testing.T) {
		for _, subtotal := range []float64{0, 500, 999, 2500} {
			for _, selectedCharge := range []float64{0, 10, 60, 200} {
				selected := rate(9, selectedCharge)
				result := ComputeHybridShipping(HybridInput{
					Subtotal:     subtotal,
					SelectedRate: &selected,
					AllRates:     []shipping.Rate{rate(1, 60)},
					Threshold:    999,
				})
				assert.GreaterOrEqual(t, result.EffectiveShipping, 0.0)
				assert.LessOrEqual(t, result.CoveredAmount, 60.0)
			}
		}
	})
}

func TestFetchRatesDefaults(t *testing.T) {
	source := &fakeRateSource{rates: []shipping.Rate{}}
	svc := newAggregator(source)

	items := []cart.Item{
		{ProductID: "p1", Price: 250, Quantity: 2, Weight: 1.2},
		{ProductID: "p2", Price: 100, Quantity: 1}, // no declared weight
	}

	_, err := svc.FetchRates(context.Background(), "560001", items, true, nil)
	require.NoError(t, err)

	assert.Equal(t, "110001", source.lastReq.PickupPostcode)
	assert.Equal(t, "560001", source.lastReq.DeliveryPostcode)
	assert.True(t, source.lastReq.IsCOD)
	assert.InDelta(t, 2.9, source.lastReq.WeightKg, 1e-9) // 2*1.2 + 1*0.5
	assert.InDelta(t, 600.0, source.lastReq.DeclaredValue, 1e-9)
}

func TestFetchRatesWeightFloor(t *testing.T) {
	source := &fakeRateSource{rates: []shipping.Rate{}}
	svc := newAggregator(source)

	_, err := svc.FetchRates(context.Background(), "560001", nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, source.lastReq.WeightKg)
}

func TestFetchRatesExplicitDeclaredValue(t *testing.T) {
	source := &fakeRateSource{rates: []shipping.Rate{}}
	svc := newAggregator(source)

	declared := 5000.0
	_, err := svc.FetchRates(context.Background(), "560001",
		[]cart.Item{{Price: 10, Quantity: 1}}, false, &declared)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, source.lastReq.DeclaredValue)
}

func TestQuoteSelectsCarrier(t *testing.T) {
	source := &fakeRateSource{rates: []shipping.Rate{rate(1, 60), rate(2, 80)}}
	svc := newAggregator(source)

	selectedID := 2
	result, err := svc.Quote(context.Background(), &shipping.QuoteRequest{
		DestinationPostcode: "560001",
		CartSubtotal:        1200,
		SelectedCarrierID:   &selectedID,
	})
	require.NoError(t, err)
	assert.False(t, result.RatesUnavailable)
	assert.Len(t, result.Rates, 2)
	assert.Equal(t, 60.0, result.CoveredAmount)
	assert.Equal(t, 20.0, result.EffectiveShipping)
}

func TestQuoteTransportFailureFallsBackToFlatRate(t *testing.T) {
	source := &fakeRateSource{err: fmt.Errorf("%w: connection refused", xerrors.ErrTransport)}
	svc := newAggregator(source)

	result, err := svc.Quote(context.Background(), &shipping.QuoteRequest{
		DestinationPostcode: "560001",
		CartSubtotal:        500,
	})
	require.NoError(t, err)
	assert.True(t, result.RatesUnavailable)
	assert.Nil(t, result.Rates)
	assert.Equal(t, 99.0, result.EffectiveShipping)

	// Over the threshold the fallback base is zero even without rates.
	result, err = svc.Quote(context.Background(), &shipping.QuoteRequest{
		DestinationPostcode: "560001",
		CartSubtotal:        1500,
	})
	require.NoError(t, err)
	assert.True(t, result.RatesUnavailable)
	assert.Zero(t, result.EffectiveShipping)
}

func TestQuoteNothingServiceable(t *testing.T) {
	source := &fakeRateSource{rates: []shipping.Rate{}}
	svc := newAggregator(source)

	result, err := svc.Quote(context.Background(), &shipping.QuoteRequest{
		DestinationPostcode: "999999",
		CartSubtotal:        500,
	})
	require.NoError(t, err)
	assert.False(t, result.RatesUnavailable)
	assert.NotNil(t, result.Rates)
	assert.Empty(t, result.Rates)
	assert.Nil(t, result.CheapestRate)
	assert.Equal(t, 99.0, result.EffectiveShipping)
}
