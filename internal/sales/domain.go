package sales

import (
	"github.com/shopspring/decimal"
)

// Line is one product in a sale. UnitPrice is captured when the line is
// built and is not re-read at completion.
type Line struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

// Subtotal returns UnitPrice times Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SaleInput describes a sale to finalize.
type SaleInput struct {
	Lines         []Line
	IsCreditSale  bool
	CustomerName  string
	CustomerPhone string
}

// CheckoutOptions carries the payment details of a cart checkout.
type CheckoutOptions struct {
	IsCreditSale  bool
	CustomerName  string
	CustomerPhone string
}

// Transaction is a recorded sale.
type Transaction struct {
	ID           int64           `json:"id"`
	Timestamp    int64           `json:"timestamp"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	IsCreditSale bool            `json:"isCreditSale"`
	CustomerID   *int64          `json:"customerId"`
	CustomerName *string         `json:"customerName,omitempty"`
	CreatedAt    int64           `json:"createdAt"`
	UpdatedAt    int64           `json:"updatedAt"`
}

// TransactionItem is a persisted sale line.
type TransactionItem struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transactionId"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
}
