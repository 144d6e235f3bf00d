// internal/domain/shipping/entity.go
package shipping

// Rate is one carrier quote, normalized from a carrier API response.
// Transient: built per request, discarded after the aggregator decides.
type Rate struct {
	CarrierID         int     `json:"carrier_id"`
	CarrierName       string  `json:"carrier_name"`
	FreightCharge     float64 `json:"freight_charge"`
	CODCharge         float64 `json:"cod_charge"`
	OtherCharges      float64 `json:"other_charges"`
	TotalCharge       float64 `json:"total_charge"`
	EstimatedDelivery string  `json:"estimated_delivery,omitempty"`
	EstimatedDays     string  `json:"estimated_days,omitempty"`
	IsSurface         bool    `json:"is_surface"`
	IsAir             bool    `json:"is_air"`
}

// HybridResult is the outcome of blending the free-shipping threshold with
// the selected carrier rate. Once a cart crosses the threshold, shipping is
// free up to the cheapest available carrier; the customer still pays the
// excess for a pricier one.
type HybridResult struct {
	EffectiveShipping float64 `json:"effective_shipping"`
	CoveredAmount     float64 `json:"covered_amount"`
	CheapestRate      *Rate   `json:"cheapest_rate,omitempty"`
}
