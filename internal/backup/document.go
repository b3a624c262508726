package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// FormatVersion tags every exported document.
const FormatVersion = "1.0"

const exportDateLayout = "2006-01-02T15:04:05.000Z"

// Document is the serialized dataset.
type Document struct {
	Products     []ProductRecord     `json:"products"`
	Customers    []CustomerRecord    `json:"customers"`
	Transactions []TransactionRecord `json:"transactions"`
	ExportDate   string              `json:"exportDate"`
	Version      string              `json:"version"`
}

// ProductRecord is a product as written to a backup.
type ProductRecord struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	SalePrice json.Number `json:"salePrice"`
	Quantity  int         `json:"quantity"`
	CreatedAt *int64      `json:"createdAt"`
	UpdatedAt *int64      `json:"updatedAt"`
}

// CustomerRecord is a customer as written to a backup.
type CustomerRecord struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	PhoneNumber        *string     `json:"phoneNumber"`
	OutstandingBalance json.Number `json:"outstandingBalance"`
	CreatedAt          *int64      `json:"createdAt"`
	UpdatedAt          *int64      `json:"updatedAt"`
}

// TransactionRecord is a transaction as written to a backup.
type TransactionRecord struct {
	ID           int64       `json:"id"`
	Timestamp    *int64      `json:"timestamp"`
	TotalAmount  json.Number `json:"totalAmount"`
	IsCreditSale flexBool    `json:"isCreditSale"`
	CustomerID   *int64      `json:"customerId"`
	CreatedAt    *int64      `json:"createdAt"`
	UpdatedAt    *int64      `json:"updatedAt"`
}

// flexBool accepts true/false, 0/1 and their quoted forms.
type flexBool bool

func (b flexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// Dataset is the decoded, validated content of a backup.
type Dataset struct {
	Products     []products.Product
	Customers    []customers.Customer
	Transactions []sales.Transaction
}

func int64Ptr(v int64) *int64 { return &v }

func encodeDocument(ds Dataset, exportDate string) Document {
	doc := Document{
		Products:     make([]ProductRecord, 0, len(ds.Products)),
		Customers:    make([]CustomerRecord, 0, len(ds.Customers)),
		Transactions: make([]TransactionRecord, 0, len(ds.Transactions)),
		ExportDate:   exportDate,
		Version:      FormatVersion,
	}
	for _, p := range ds.Products {
		doc.Products = append(doc.Products, ProductRecord{
			ID:        p.ID,
			Name:      p.Name,
			SalePrice: json.Number(p.SalePrice.String()),
			Quantity:  p.Quantity,
			CreatedAt: int64Ptr(p.CreatedAt),
			UpdatedAt: int64Ptr(p.UpdatedAt),
		})
	}
	for _, c := range ds.Customers {
		doc.Customers = append(doc.Customers, CustomerRecord{
			ID:                 c.ID,
			Name:               c.Name,
			PhoneNumber:        c.PhoneNumber,
			OutstandingBalance: json.Number(c.OutstandingBalance.String()),
			CreatedAt:          int64Ptr(c.CreatedAt),
			UpdatedAt:          int64Ptr(c.UpdatedAt),
		})
	}
	for _, t := range ds.Transactions {
		doc.Transactions = append(doc.Transactions, TransactionRecord{
			ID:           t.ID,
			Timestamp:    int64Ptr(t.Timestamp),
			TotalAmount:  json.Number(t.TotalAmount.String()),
			IsCreditSale: flexBool(t.IsCreditSale),
			CustomerID:   t.CustomerID,
			CreatedAt:    int64Ptr(t.CreatedAt),
			UpdatedAt:    int64Ptr(t.UpdatedAt),
		})
	}
	return doc
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrFormat, fmt.Sprintf(format, args...))
}

// decodeDocument parses and validates a whole backup before anything is
// written. Missing timestamps are filled with now.
func decodeDocument(raw []byte, now int64) (Dataset, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Dataset{}, formatErrorf("document is not a JSON object: %v", err)
	}
	var (
		productRows, customerRows, transactionRows []json.RawMessage
	)
	for _, section := range []struct {
		key  string
		rows *[]json.RawMessage
	}{
		{"products", &productRows},
		{"customers", &customerRows},
		{"transactions", &transactionRows},
	} {
		value, ok := top[section.key]
		if !ok {
			return Dataset{}, formatErrorf("missing %q", section.key)
		}
		if trimmed := bytes.TrimSpace(value); len(trimmed) == 0 || trimmed[0] != '[' {
			return Dataset{}, formatErrorf("%q must be an array", section.key)
		}
		if err := json.Unmarshal(value, section.rows); err != nil {
			return Dataset{}, formatErrorf("%q: %v", section.key, err)
		}
	}

	var ds Dataset
	customerIDs := make(map[int64]bool, len(customerRows))

	for i, row := range productRows {
		var rec ProductRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return Dataset{}, formatErrorf("products[%d]: %v", i, err)
		}
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return Dataset{}, formatErrorf("products[%d]: name is required", i)
		}
		price, err := amount(rec.SalePrice, false)
		if err != nil {
			return Dataset{}, formatErrorf("products[%d]: salePrice %v", i, err)
		}
		ds.Products = append(ds.Products, products.Product{
			ID:        rec.ID,
			Name:      name,
			SalePrice: price,
			Quantity:  rec.Quantity,
			CreatedAt: orNow(rec.CreatedAt, now),
			UpdatedAt: orNow(rec.UpdatedAt, now),
		})
	}

	for i, row := range customerRows {
		var rec CustomerRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return Dataset{}, formatErrorf("customers[%d]: %v", i, err)
		}
		name := customers.NormalizeName(rec.Name)
		if name == "" {
			return Dataset{}, formatErrorf("customers[%d]: name is required", i)
		}
		balance, err := amount(rec.OutstandingBalance, true)
		if err != nil {
			return Dataset{}, formatErrorf("customers[%d]: outstandingBalance %v", i, err)
		}
		if customerIDs[rec.ID] {
			return Dataset{}, formatErrorf("customers[%d]: duplicate id %d", i, rec.ID)
		}
		customerIDs[rec.ID] = true
		ds.Customers = append(ds.Customers, customers.Customer{
			ID:                 rec.ID,
			Name:               name,
			PhoneNumber:        rec.PhoneNumber,
			OutstandingBalance: balance,
			CreatedAt:          orNow(rec.CreatedAt, now),
			UpdatedAt:          orNow(rec.UpdatedAt, now),
		})
	}

	for i, row := range transactionRows {
		var rec TransactionRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return Dataset{}, formatErrorf("transactions[%d]: %v", i, err)
		}
		total, err := amount(rec.TotalAmount, false)
		if err != nil {
			return Dataset{}, formatErrorf("transactions[%d]: totalAmount %v", i, err)
		}
		if rec.CustomerID != nil && !customerIDs[*rec.CustomerID] {
			return Dataset{}, formatErrorf("transactions[%d]: customer %d is not in the document", i, *rec.CustomerID)
		}
		ds.Transactions = append(ds.Transactions, sales.Transaction{
			ID:           rec.ID,
			Timestamp:    orNow(rec.Timestamp, now),
			TotalAmount:  total,
			IsCreditSale: bool(rec.IsCreditSale),
			CustomerID:   rec.CustomerID,
			CreatedAt:    orNow(rec.CreatedAt, now),
			UpdatedAt:    orNow(rec.UpdatedAt, now),
		})
	}
	return ds, nil
}

func amount(n json.Number, allowNegative bool) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, errors.New("is required")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, errors.New("is not a number")
	}
	if !allowNegative && d.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	if _, err := shared.ToCents(d); err != nil {
		return decimal.Zero, errors.New(strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": "))
	}
	return d, nil
}

func orNow(v *int64, now int64) int64 {
	if v == nil {
		return now
	}
	return *v
}
