package pos

import "github.com/sari-pos/sari-pos/internal/money"

// ResolveLinePrice computes the effective unit price and line total for
// a cart line according to the product's pricing model.
//
// Fixed models always charge the listed base price. Variable pricing
// charges the operator override when present, otherwise the base price;
// a variable product with no base price and no override resolves to a
// zero unit price, which is a valid cart state that checkout refuses
// until the operator sets a price. The override is a per-unit price,
// never an absolute line total.
func ResolveLinePrice(item CartItem) LinePrice {
	unit := baseUnitPrice(item.Product)
	if item.Product.PricingModel == PricingVariable && item.PriceOverride != nil {
		unit = *item.PriceOverride
	}
	return LinePrice{
		UnitPrice: unit,
		LineTotal: money.RoundPrice(unit * item.Quantity),
	}
}

func baseUnitPrice(p Product) float64 {
	if p.BasePrice == nil {
		return 0
	}
	return *p.BasePrice
}

// defaultAddQuantity is the increment used when AddItem is called
// without an explicit quantity: one piece, or a small fractional step
// for weight and volume goods.
func defaultAddQuantity(unit money.UnitType) float64 {
	if unit.Fractional() {
		return 0.1
	}
	return 1
}
