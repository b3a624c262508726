package customers

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hisab/hisab-ledger/internal/shared"
)

type memRepo struct {
	rows   map[int64]Customer
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]Customer)}
}

func (m *memRepo) FindByName(ctx context.Context, name string) (Customer, error) {
	var ids []int64
	for id, c := range m.rows {
		if c.Name == name {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Customer{}, fmt.Errorf("%w: customer %q", shared.ErrNotFound, name)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return m.rows[ids[0]], nil
}

func (m *memRepo) Insert(ctx context.Context, c Customer) (int64, error) {
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *memRepo) Touch(ctx context.Context, id int64, phone *string, updatedAt int64) error {
	c, ok := m.rows[id]
	if !ok {
		return nil
	}
	if phone != nil {
		c.PhoneNumber = phone
	}
	c.UpdatedAt = updatedAt
	m.rows[id] = c
	return nil
}

func (m *memRepo) AdjustBalance(ctx context.Context, id, deltaCents, updatedAt int64) (Customer, error) {
	c, ok := m.rows[id]
	if !ok {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	c.OutstandingBalance = c.OutstandingBalance.Add(shared.FromCents(deltaCents))
	c.UpdatedAt = updatedAt
	m.rows[id] = c
	return c, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.rows[id]
	if !ok {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (m *memRepo) ListWithBalance(ctx context.Context) ([]Customer, error) {
	var out []Customer
	for _, c := range m.rows {
		if c.OutstandingBalance.IsPositive() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (m *memRepo) ListAll(ctx context.Context) ([]Customer, error) {
	var out []Customer
	for _, c := range m.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type LedgerSuite struct {
	suite.Suite
	repo  *memRepo
	svc   *Service
	clock int64
	ctx   context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.repo = newMemRepo()
	s.svc = NewService(s.repo, nil)
	s.clock = 100
	s.svc.now = func() int64 {
		s.clock++
		return s.clock
	}
	s.ctx = context.Background()
}

func (s *LedgerSuite) TestUpsertIsIdempotent() {
	first, err := s.svc.UpsertCustomer(s.ctx, "Bob", "555")
	s.Require().NoError(err)
	second, err := s.svc.UpsertCustomer(s.ctx, " Bob ", "")
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Len(s.repo.rows, 1)
	c := s.repo.rows[first]
	s.Require().NotNil(c.PhoneNumber)
	s.Equal("555", *c.PhoneNumber)
	s.Greater(c.UpdatedAt, c.CreatedAt)
}

func (s *LedgerSuite) TestUpsertReplacesPhoneWhenSupplied() {
	id, err := s.svc.UpsertCustomer(s.ctx, "Bob", "")
	s.Require().NoError(err)
	s.Nil(s.repo.rows[id].PhoneNumber)

	_, err = s.svc.UpsertCustomer(s.ctx, "Bob", "777")
	s.Require().NoError(err)
	s.Equal("777", *s.repo.rows[id].PhoneNumber)
}

func (s *LedgerSuite) TestUpsertMatchesCaseSensitivelyAfterNormalization() {
	composed, err := s.svc.UpsertCustomer(s.ctx, "Jos\u00e9", "")
	s.Require().NoError(err)
	decomposed, err := s.svc.UpsertCustomer(s.ctx, "Jose\u0301", "")
	s.Require().NoError(err)
	s.Equal(composed, decomposed)

	other, err := s.svc.UpsertCustomer(s.ctx, "jos\u00e9", "")
	s.Require().NoError(err)
	s.NotEqual(composed, other)
}

func (s *LedgerSuite) TestUpsertRejectsBlankName() {
	_, err := s.svc.UpsertCustomer(s.ctx, "   ", "")
	s.ErrorIs(err, shared.ErrValidation)
}

func (s *LedgerSuite) TestAdjustBalanceMayGoNegative() {
	id, err := s.svc.UpsertCustomer(s.ctx, "Bob", "")
	s.Require().NoError(err)

	c, err := s.svc.AdjustBalance(s.ctx, id, decimal.RequireFromString("-3.25"))
	s.Require().NoError(err)
	s.True(c.OutstandingBalance.Equal(decimal.RequireFromString("-3.25")))

	_, err = s.svc.AdjustBalance(s.ctx, 99, decimal.NewFromInt(1))
	s.ErrorIs(err, shared.ErrNotFound)

	_, err = s.svc.AdjustBalance(s.ctx, id, decimal.RequireFromString("0.001"))
	s.ErrorIs(err, shared.ErrValidation)
}

func (s *LedgerSuite) TestRecordPaymentFlagsOverpayment() {
	id, err := s.svc.UpsertCustomer(s.ctx, "Bob", "")
	s.Require().NoError(err)
	_, err = s.svc.AdjustBalance(s.ctx, id, decimal.NewFromInt(10))
	s.Require().NoError(err)

	res, err := s.svc.RecordPayment(s.ctx, id, decimal.NewFromInt(4))
	s.Require().NoError(err)
	s.False(res.Overpaid)
	s.True(res.Customer.OutstandingBalance.Equal(decimal.NewFromInt(6)))

	res, err = s.svc.RecordPayment(s.ctx, id, decimal.NewFromInt(7))
	s.Require().NoError(err)
	s.True(res.Overpaid)
	s.True(res.Customer.OutstandingBalance.Equal(decimal.NewFromInt(-1)))

	_, err = s.svc.RecordPayment(s.ctx, id, decimal.Zero)
	s.ErrorIs(err, shared.ErrValidation)
}

func (s *LedgerSuite) TestListings() {
	alice, _ := s.svc.UpsertCustomer(s.ctx, "Alice", "")
	bob, _ := s.svc.UpsertCustomer(s.ctx, "Bob", "")
	_, _ = s.svc.UpsertCustomer(s.ctx, "Carol", "")
	_, err := s.svc.AdjustBalance(s.ctx, bob, decimal.NewFromInt(5))
	s.Require().NoError(err)
	_, err = s.svc.AdjustBalance(s.ctx, alice, decimal.NewFromInt(2))
	s.Require().NoError(err)

	owing, err := s.svc.ListCustomersWithBalance(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(owing, 2)
	s.Equal(alice, owing[0].ID)

	all, err := s.svc.ListAllCustomers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Alice", all[0].Name)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Jos\u00e9", NormalizeName("  Jose\u0301\t"))
	require.Empty(t, NormalizeName(" "))
}
