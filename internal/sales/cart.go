package sales

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// Cart accumulates sale lines for a single caller. Nothing is persisted
// until checkout.
type Cart struct {
	lines []Line
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty units of p into the cart, merging with an existing line for
// the same product. The price known from p is captured.
func (c *Cart) Add(p products.Product, qty int) error {
	if qty <= 0 {
		return shared.Validationf("quantity must be positive")
	}
	idx := c.indexOf(p.ID)
	merged := qty
	if idx >= 0 {
		merged += c.lines[idx].Quantity
	}
	if merged > p.Quantity {
		return fmt.Errorf("%w: %s has %d in stock, cart needs %d", shared.ErrInsufficientStock, p.Name, p.Quantity, merged)
	}
	if idx >= 0 {
		c.lines[idx].Quantity = merged
		return nil
	}
	c.lines = append(c.lines, Line{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.SalePrice,
		Quantity:    qty,
	})
	return nil
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID int64) {
	if idx := c.indexOf(productID); idx >= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total sums the line subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int { return len(c.lines) }

// Reset abandons the cart.
func (c *Cart) Reset() {
	c.lines = nil
}

func (c *Cart) indexOf(productID int64) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
