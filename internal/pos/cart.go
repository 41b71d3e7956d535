package pos

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sari-pos/sari-pos/internal/money"
)

// Cart owns the line items, selected customer and payment parameters of
// one terminal session. All mutation funnels through its methods; every
// rejected mutation leaves prior state untouched. A mutex serialises
// operator actions arriving over HTTP, matching the engine's
// single-threaded cooperative model.
type Cart struct {
	mu sync.Mutex

	items        []*CartItem
	customerID   *int64
	payment      PaymentMethod
	cashTendered float64

	// stamp identifies the current cart incarnation. Clear rotates it
	// so an in-flight checkout result can be detected as stale and
	// discarded instead of being applied to a fresh cart.
	stamp uuid.UUID
}

// NewCart returns an empty cart with cash payment selected.
func NewCart() *Cart {
	return &Cart{payment: PaymentCash, stamp: uuid.New()}
}

// AddItem puts a product in the cart. If the product already has a
// line, its quantity is incremented; otherwise a new line is appended
// with the unit price resolved from the product's base price and no
// override. A nil quantity uses the default increment for the unit
// type. The resulting quantity is clamped to the product's stock.
func (c *Cart) AddItem(product Product, quantity *float64) error {
	if !product.UnitType.Valid() || !product.PricingModel.Valid() {
		return ErrItemNotFound
	}

	qty := defaultAddQuantity(product.UnitType)
	if quantity != nil {
		if !money.IsFinite(*quantity) || *quantity <= 0 {
			return ErrInvalidQuantity
		}
		qty = *quantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if line := c.findLine(product.ID); line != nil {
		next := money.RoundQuantity(product.UnitType, line.Quantity+qty)
		if next > line.Product.StockQuantity {
			next = money.RoundQuantity(product.UnitType, line.Product.StockQuantity)
		}
		if next <= 0 {
			return ErrInvalidQuantity
		}
		line.Quantity = next
		return nil
	}

	rounded := money.RoundQuantity(product.UnitType, qty)
	if rounded > product.StockQuantity {
		rounded = money.RoundQuantity(product.UnitType, product.StockQuantity)
	}
	if rounded <= 0 {
		return ErrInvalidQuantity
	}

	line := &CartItem{Product: product, Quantity: rounded}
	line.UnitPrice = ResolveLinePrice(*line).UnitPrice
	c.items = append(c.items, line)
	return nil
}

// RemoveItem deletes the line for the given product. Removing an
// absent product is a no-op.
func (c *Cart) RemoveItem(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, line := range c.items {
		if line.Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets a line's quantity, clamped to (0, stock]. A
// rounded result of zero or less, or garbage input, is rejected with
// ErrInvalidQuantity and the prior quantity retained.
func (c *Cart) UpdateQuantity(productID int64, quantity float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := c.findLine(productID)
	if line == nil {
		return ErrItemNotFound
	}
	if !money.IsFinite(quantity) {
		return ErrInvalidQuantity
	}

	rounded := money.RoundQuantity(line.Product.UnitType, quantity)
	if rounded <= 0 {
		return ErrInvalidQuantity
	}
	if rounded > line.Product.StockQuantity {
		rounded = money.RoundQuantity(line.Product.UnitType, line.Product.StockQuantity)
	}
	line.Quantity = rounded
	return nil
}

// UpdateUnitPriceOverride sets or clears the operator price override on
// a variable-priced line. The override is per-unit and may never charge
// less than the listed base price; a violating value is rejected and
// the prior override kept.
func (c *Cart) UpdateUnitPriceOverride(productID int64, value *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := c.findLine(productID)
	if line == nil {
		return ErrItemNotFound
	}
	if line.Product.PricingModel != PricingVariable {
		return ErrOverrideNotAllowed
	}

	if value == nil {
		line.PriceOverride = nil
		line.UnitPrice = ResolveLinePrice(*line).UnitPrice
		return nil
	}
	if !money.IsFinite(*value) || *value < 0 {
		return ErrInvalidPrice
	}

	price := money.RoundPrice(*value)
	if price < baseUnitPrice(line.Product) {
		return ErrPriceBelowMinimum
	}
	line.PriceOverride = &price
	line.UnitPrice = price
	return nil
}

// SetCustomer selects the customer for this cart; nil clears it.
func (c *Cart) SetCustomer(customerID *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customerID = customerID
}

// SetPaymentMethod selects the tender type. Choosing anything other
// than cash clears a previously entered tendered amount.
func (c *Cart) SetPaymentMethod(method PaymentMethod) error {
	if !method.Valid() {
		return ErrInvalidPayment
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payment = method
	if method != PaymentCash {
		c.cashTendered = 0
	}
	return nil
}

// SetCashTendered records the cash handed over by the customer.
func (c *Cart) SetCashTendered(amount float64) error {
	if !money.IsFinite(amount) || amount < 0 {
		return ErrInvalidPrice
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cashTendered = money.RoundPrice(amount)
	return nil
}

// Total returns the sum of every line's resolved total. Recomputed on
// demand, never cached.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

func (c *Cart) totalLocked() float64 {
	var total float64
	for _, line := range c.items {
		total += ResolveLinePrice(*line).LineTotal
	}
	return money.RoundPrice(total)
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CartItem, len(c.items))
	for i, line := range c.items {
		out[i] = *line
	}
	return out
}

// CustomerID returns the selected customer, or nil.
func (c *Cart) CustomerID() *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerID
}

// PaymentMethod returns the selected tender type.
func (c *Cart) PaymentMethod() PaymentMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payment
}

// CashTendered returns the recorded tendered amount.
func (c *Cart) CashTendered() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cashTendered
}

// Stamp identifies the current cart incarnation.
func (c *Cart) Stamp() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stamp
}

// Clear empties the cart and resets customer and payment state to the
// defaults. Called exactly once per transaction, on checkout success or
// explicit abandonment. The incarnation stamp rotates so any in-flight
// submission result is recognised as stale.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.customerID = nil
	c.payment = PaymentCash
	c.cashTendered = 0
	c.stamp = uuid.New()
}

func (c *Cart) findLine(productID int64) *CartItem {
	for _, line := range c.items {
		if line.Product.ID == productID {
			return line
		}
	}
	return nil
}
