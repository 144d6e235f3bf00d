// internal/domain/cart/entity.go
package cart

// DefaultItemWeight is assumed for items without a declared weight, in kg.
const DefaultItemWeight = 0.5

// Item is a single cart line as supplied by the checkout collaborator.
// It carries just enough to evaluate offer scope and shipping weight.
type Item struct {
	ProductID string  `json:"product_id"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Weight    float64 `json:"weight,omitempty"` // kg per unit, 0 = unspecified
}

// TotalWeight returns the shippable weight of the items. Items without a
// declared weight count as DefaultItemWeight per unit, and the result is
// floored at DefaultItemWeight so carriers never see a zero-weight shipment.
func TotalWeight(items []Item) float64 {
	total := 0.0
	for _, it := range items {
		w := it.Weight
		if w <= 0 {
			w = DefaultItemWeight
		}
		total += float64(it.Quantity) * w
	}
	if total < DefaultItemWeight {
		total = DefaultItemWeight
	}
	return total
}

// DeclaredValue returns the insurable value of the items.
func DeclaredValue(items []Item) float64 {
	total := 0.0
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
