// internal/domain/shipping/dto.go
package shipping

import "shopcore-service/internal/domain/cart"

type QuoteRequest struct {
	DestinationPostcode string      `json:"destination_postcode" binding:"required"`
	Items               []cart.Item `json:"items"`
	IsCOD               bool        `json:"is_cod"`
	DeclaredValue       *float64    `json:"declared_value"`
	CartSubtotal        float64     `json:"cart_subtotal" binding:"min=0"`
	SelectedCarrierID   *int        `json:"selected_carrier_id"`
}

// QuoteResponse distinguishes "could not check" (RatesUnavailable, rates nil)
// from "checked, nothing serviceable" (rates present but empty).
type QuoteResponse struct {
	Rates             []Rate  `json:"rates"`
	RatesUnavailable  bool    `json:"rates_unavailable"`
	EffectiveShipping float64 `json:"effective_shipping"`
	CoveredAmount     float64 `json:"covered_amount"`
	CheapestRate      *Rate   `json:"cheapest_rate,omitempty"`
}
