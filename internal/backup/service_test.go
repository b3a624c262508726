package backup

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
	"github.com/hisab/hisab-ledger/internal/shared"
)

type memData struct {
	products     []products.Product
	customers    []customers.Customer
	transactions []sales.Transaction
}

func (d memData) clone() memData {
	return memData{
		products:     append([]products.Product(nil), d.products...),
		customers:    append([]customers.Customer(nil), d.customers...),
		transactions: append([]sales.Transaction(nil), d.transactions...),
	}
}

type memRepo struct {
	data           memData
	failInsertName string
	// entered and release, when set, hold WithTx open until release closes.
	entered chan struct{}
	release chan struct{}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.release != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	work := &memTx{data: m.data.clone(), failInsertName: m.failInsertName}
	if err := fn(ctx, work); err != nil {
		return err
	}
	m.data = work.data
	return nil
}

type memTx struct {
	data           memData
	failInsertName string
}

func (t *memTx) Truncate(ctx context.Context) error {
	t.data = memData{}
	return nil
}

func (t *memTx) ListProducts(ctx context.Context) ([]products.Product, error) {
	return append([]products.Product(nil), t.data.products...), nil
}

func (t *memTx) ListCustomers(ctx context.Context) ([]customers.Customer, error) {
	out := append([]customers.Customer(nil), t.data.customers...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memTx) ListTransactions(ctx context.Context, limit int) ([]sales.Transaction, error) {
	out := append([]sales.Transaction(nil), t.data.transactions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) InsertProduct(ctx context.Context, p products.Product) (int64, error) {
	if p.Name == t.failInsertName {
		return 0, errors.New("disk full")
	}
	p.ID = int64(len(t.data.products) + 1)
	t.data.products = append(t.data.products, p)
	return p.ID, nil
}

func (t *memTx) InsertCustomer(ctx context.Context, c customers.Customer) (int64, error) {
	c.ID = int64(len(t.data.customers) + 1)
	t.data.customers = append(t.data.customers, c)
	return c.ID, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr sales.Transaction) (int64, error) {
	tr.ID = int64(len(t.data.transactions) + 1)
	t.data.transactions = append(t.data.transactions, tr)
	return tr.ID, nil
}

func strPtr(s string) *string { return &s }
func idPtr(v int64) *int64    { return &v }

func seededRepo() *memRepo {
	return &memRepo{data: memData{
		products: []products.Product{
			{ID: 1, Name: "Soap", SalePrice: decimal.RequireFromString("2.50"), Quantity: 90, CreatedAt: 10, UpdatedAt: 20},
			{ID: 2, Name: "Rice", SalePrice: decimal.RequireFromString("12"), Quantity: 0, CreatedAt: 11, UpdatedAt: 11},
		},
		customers: []customers.Customer{
			{ID: 7, Name: "Zed", OutstandingBalance: decimal.Zero, CreatedAt: 30, UpdatedAt: 30},
			{ID: 9, Name: "Bob", PhoneNumber: strPtr("555"), OutstandingBalance: decimal.RequireFromString("-5"), CreatedAt: 31, UpdatedAt: 40},
		},
		transactions: []sales.Transaction{
			{ID: 3, Timestamp: 100, TotalAmount: decimal.RequireFromString("25"), CreatedAt: 100, UpdatedAt: 100},
			{ID: 4, Timestamp: 200, TotalAmount: decimal.RequireFromString("12.5"), IsCreditSale: true, CustomerID: idPtr(9), CreatedAt: 200, UpdatedAt: 200},
		},
	}}
}

func newTestService(repo RepositoryPort, cfg ServiceConfig) *Service {
	svc := NewService(repo, cfg, nil)
	svc.clock = func() time.Time { return time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportDocumentShape(t *testing.T) {
	svc := newTestService(seededRepo(), ServiceConfig{})
	out, err := svc.ExportAll(context.Background())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, "2026-10-14T03:00:00.000Z", doc["exportDate"])

	prods := doc["products"].([]any)
	require.Len(t, prods, 2)
	assert.Equal(t, 2.5, prods[0].(map[string]any)["salePrice"])

	custs := doc["customers"].([]any)
	assert.Nil(t, custs[1].(map[string]any)["phoneNumber"])

	txs := doc["transactions"].([]any)
	first := txs[0].(map[string]any)
	assert.Equal(t, true, first["isCreditSale"])
	assert.Equal(t, float64(9), first["customerId"])
	assert.Nil(t, txs[1].(map[string]any)["customerId"])
}

func TestExportIsBounded(t *testing.T) {
	svc := newTestService(seededRepo(), ServiceConfig{TransactionLimit: 1})
	out, err := svc.ExportAll(context.Background())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Transactions, 1)
	assert.Equal(t, int64(4), doc.Transactions[0].ID)
}

func TestRoundTripPreservesValues(t *testing.T) {
	repo := seededRepo()
	before := repo.data.clone()
	svc := newTestService(repo, ServiceConfig{})
	ctx := context.Background()

	out, err := svc.ExportAll(ctx)
	require.NoError(t, err)
	summary, err := svc.ImportAll(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Products: 2, Customers: 2, Transactions: 2}, summary)

	require.Len(t, repo.data.products, len(before.products))
	for i, p := range repo.data.products {
		want := before.products[i]
		assert.Equal(t, want.Name, p.Name)
		assert.True(t, want.SalePrice.Equal(p.SalePrice))
		assert.Equal(t, want.Quantity, p.Quantity)
		assert.Equal(t, want.CreatedAt, p.CreatedAt)
	}

	bob := repo.data.customers[0]
	assert.Equal(t, "Bob", bob.Name)
	assert.Equal(t, "555", *bob.PhoneNumber)
	assert.True(t, bob.OutstandingBalance.Equal(decimal.NewFromInt(-5)))

	// Transactions come back oldest first and point at Bob's new id.
	require.Len(t, repo.data.transactions, 2)
	credit := repo.data.transactions[1]
	assert.True(t, credit.IsCreditSale)
	require.NotNil(t, credit.CustomerID)
	assert.Equal(t, bob.ID, *credit.CustomerID)
	assert.True(t, credit.TotalAmount.Equal(decimal.RequireFromString("12.50")))
	assert.Nil(t, repo.data.transactions[0].CustomerID)
}

func TestRoundTripKeepsNegativeStock(t *testing.T) {
	repo := seededRepo()
	repo.data.products[0].Quantity = -2
	svc := newTestService(repo, ServiceConfig{})
	ctx := context.Background()

	out, err := svc.ExportAll(ctx)
	require.NoError(t, err)
	_, err = svc.ImportAll(ctx, out)
	require.NoError(t, err)

	quantities := make(map[string]int, len(repo.data.products))
	for _, p := range repo.data.products {
		quantities[p.Name] = p.Quantity
	}
	assert.Equal(t, map[string]int{"Soap": -2, "Rice": 0}, quantities)
}

func TestImportRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":           `nope`,
		"missing customers":  `{"products":[],"transactions":[]}`,
		"not an array":       `{"products":{},"customers":[],"transactions":[]}`,
		"blank product name": `{"products":[{"name":" ","salePrice":1,"quantity":1}],"customers":[],"transactions":[]}`,
		"huge price":         `{"products":[{"name":"Soap","salePrice":100000000000000000000,"quantity":1}],"customers":[],"transactions":[]}`,
		"three decimals":     `{"products":[{"name":"Soap","salePrice":1.005,"quantity":1}],"customers":[],"transactions":[]}`,
		"dangling customer":  `{"products":[],"customers":[],"transactions":[{"totalAmount":1,"isCreditSale":true,"customerId":4}]}`,
		"bad boolean":        `{"products":[],"customers":[],"transactions":[{"totalAmount":1,"isCreditSale":"maybe"}]}`,
		"negative total":     `{"products":[],"customers":[],"transactions":[{"totalAmount":-1,"isCreditSale":0}]}`,
		"duplicate customer": `{"products":[],"customers":[{"id":1,"name":"A","outstandingBalance":0},{"id":1,"name":"B","outstandingBalance":0}],"transactions":[]}`,
		"missing total":      `{"products":[],"customers":[],"transactions":[{"isCreditSale":false}]}`,
	}
	for name, doc := range cases {
		repo := seededRepo()
		_, err := newTestService(repo, ServiceConfig{}).ImportAll(context.Background(), []byte(doc))
		require.ErrorIs(t, err, shared.ErrFormat, name)
		assert.Len(t, repo.data.products, 2, name)
	}
}

func TestImportAcceptsLenientFields(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, ServiceConfig{})
	doc := `{
		"products":[{"name":"Soap","salePrice":"2.50","quantity":3}],
		"customers":[{"id":5,"name":"Bob","outstandingBalance":1}],
		"transactions":[
			{"timestamp":5,"totalAmount":1,"isCreditSale":1,"customerId":5},
			{"timestamp":6,"totalAmount":2,"isCreditSale":"false"}
		],
		"extra":"ignored"
	}`
	_, err := svc.ImportAll(context.Background(), []byte(doc))
	require.NoError(t, err)

	now := svc.clock().Unix()
	assert.Equal(t, now, repo.data.products[0].CreatedAt, "missing timestamps are backfilled")
	assert.True(t, repo.data.transactions[0].IsCreditSale)
	assert.False(t, repo.data.transactions[1].IsCreditSale)
}

func TestImportFailureKeepsPreviousData(t *testing.T) {
	repo := seededRepo()
	repo.failInsertName = "Broken"
	doc := `{"products":[{"name":"Fine","salePrice":1,"quantity":1},{"name":"Broken","salePrice":1,"quantity":1}],"customers":[],"transactions":[]}`

	_, err := newTestService(repo, ServiceConfig{}).ImportAll(context.Background(), []byte(doc))
	require.ErrorIs(t, err, shared.ErrStorage)
	assert.True(t, shared.NothingChanged(err))
	require.Len(t, repo.data.products, 2)
	assert.Equal(t, "Soap", repo.data.products[0].Name)
}

func TestClearAll(t *testing.T) {
	repo := seededRepo()
	require.NoError(t, newTestService(repo, ServiceConfig{}).ClearAll(context.Background()))
	assert.Empty(t, repo.data.products)
	assert.Empty(t, repo.data.customers)
	assert.Empty(t, repo.data.transactions)
}

func TestExportSurvivesCancelledSharer(t *testing.T) {
	repo := seededRepo()
	repo.entered = make(chan struct{}, 2)
	repo.release = make(chan struct{})
	svc := newTestService(repo, ServiceConfig{})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ExportAll(first)
		firstErr <- err
	}()
	<-repo.entered

	type result struct {
		raw []byte
		err error
	}
	second := make(chan result, 1)
	go func() {
		raw, err := svc.ExportAll(context.Background())
		second <- result{raw, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(repo.release)

	res := <-second
	require.NoError(t, res.err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(res.raw, &doc))
	assert.Contains(t, doc, "products")
}
