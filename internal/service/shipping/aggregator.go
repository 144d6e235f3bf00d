// internal/service/shipping/aggregator.go
package shipping

import (
	"context"
	"errors"

	"shopcore-service/internal/carrier"
	"shopcore-service/internal/domain/cart"
	"shopcore-service/internal/domain/shipping"
	xerrors "shopcore-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// RateSource is the outbound carrier collaborator.
type RateSource interface {
	Rates(ctx context.Context, req carrier.RateRequest) ([]shipping.Rate, error)
}

type Options struct {
	PickupPostcode        string
	FreeShippingThreshold float64
	DefaultFlatRate       float64
}

// AggregatorService fetches and normalizes carrier quotes and applies the
// hybrid free-shipping policy.
type AggregatorService struct {
	source RateSource
	opts   Options
	logger *zap.Logger
}

func NewAggregatorService(source RateSource, opts Options, logger *zap.Logger) *AggregatorService {
	if opts.FreeShippingThreshold <= 0 {
		opts.FreeShippingThreshold = 999
	}
	if opts.DefaultFlatRate <= 0 {
		opts.DefaultFlatRate = 99
	}
	return &AggregatorService{source: source, opts: opts, logger: logger}
}

// FetchRates queries the carrier collaborator for quotes to a destination.
// A nil slice means "serviceability unknown" (transport failure, returned
// with ErrTransport); an empty non-nil slice means "checked, nothing
// serviceable". Exactly one attempt is made per call.
func (s *AggregatorService) FetchRates(ctx context.Context, destPostcode string, items []cart.Item, isCOD bool, declaredValue *float64) ([]shipping.Rate, error) {
	value := cart.DeclaredValue(items)
	if declaredValue != nil {
		value = *declaredValue
	}

	rates, err := s.source.Rates(ctx, carrier.RateRequest{
		PickupPostcode:   s.opts.PickupPostcode,
		DeliveryPostcode: destPostcode,
		WeightKg:         cart.TotalWeight(items),
		IsCOD:            isCOD,
		DeclaredValue:    value,
	})
	if err != nil {
		s.logger.Warn("rate fetch failed",
			zap.String("destination", destPostcode),
			zap.Error(err),
		)
		return nil, err
	}
	return rates, nil
}

// CheapestRate returns the rate with the minimum total charge, or nil on
// empty input. Ties go to the first rate encountered.
func CheapestRate(rates []shipping.Rate) *shipping.Rate {
	if len(rates) == 0 {
		return nil
	}
	cheapest := &rates[0]
	for i := 1; i < len(rates); i++ {
		if rates[i].TotalCharge < cheapest.TotalCharge {
			cheapest = &rates[i]
		}
	}
	return cheapest
}

type HybridInput struct {
	Subtotal     float64
	SelectedRate *shipping.Rate
	AllRates     []shipping.Rate
	Threshold    float64
	FlatRate     float64
}

// ComputeHybridShipping blends the free-shipping threshold with the selected
// carrier rate. Above the threshold the store covers the cheapest available
// carrier charge; the customer pays any excess for a pricier one. With no
// carrier selected yet, a flat default applies below the threshold and
// nothing above it. Pure function; never returns a negative charge.
func ComputeHybridShipping(in HybridInput) shipping.HybridResult {
	if in.Threshold <= 0 {
		in.Threshold = 999
	}
	if in.FlatRate <= 0 {
		in.FlatRate = 99
	}

	cheapest := CheapestRate(in.AllRates)
	overThreshold := in.Subtotal >= in.Threshold

	covered := 0.0
	if overThreshold && cheapest != nil {
		covered = cheapest.TotalCharge
	}

	var base float64
	switch {
	case in.SelectedRate != nil:
		base = in.SelectedRate.TotalCharge
	case overThreshold:
		base = 0
	default:
		base = in.FlatRate
	}

	effective := base - covered
	if effective < 0 {
		effective = 0
	}

	return shipping.HybridResult{
		EffectiveShipping: effective,
		CoveredAmount:     covered,
		CheapestRate:      cheapest,
	}
}

// Quote is the handler-facing operation: fetch, select and price in one
// call. A transport failure degrades to the flat default pricing instead of
// telling the customer the address is not deliverable.
func (s *AggregatorService) Quote(ctx context.Context, req *shipping.QuoteRequest) (*shipping.QuoteResponse, error) {
	rates, err := s.FetchRates(ctx, req.DestinationPostcode, req.Items, req.IsCOD, req.DeclaredValue)
	if err != nil {
		if !errors.Is(err, xerrors.ErrTransport) {
			return nil, err
		}
		result := ComputeHybridShipping(HybridInput{
			Subtotal:  req.CartSubtotal,
			Threshold: s.opts.FreeShippingThreshold,
			FlatRate:  s.opts.DefaultFlatRate,
		})
		return &shipping.QuoteResponse{
			Rates:             nil,
			RatesUnavailable:  true,
			EffectiveShipping: result.EffectiveShipping,
			CoveredAmount:     result.CoveredAmount,
		}, nil
	}

	var selected *shipping.Rate
	if req.SelectedCarrierID != nil {
		for i := range rates {
			if rates[i].CarrierID == *req.SelectedCarrierID {
				selected = &rates[i]
				break
			}
		}
	}

	result := ComputeHybridShipping(HybridInput{
		Subtotal:     req.CartSubtotal,
		SelectedRate: selected,
		AllRates:     rates,
		Threshold:    s.opts.FreeShippingThreshold,
		FlatRate:     s.opts.DefaultFlatRate,
	})

	return &shipping.QuoteResponse{
		Rates:             rates,
		RatesUnavailable:  false,
		EffectiveShipping: result.EffectiveShipping,
		CoveredAmount:     result.CoveredAmount,
		CheapestRate:      result.CheapestRate,
	}, nil
}
