package transaction

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/categorization"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockStore is an in-memory Store for testing
type MockStore struct {
	txs       map[int64]*Transaction
	order     []int64
	updates   int
	listCalls int
}

func NewMockStore(txs ...Transaction) *MockStore {
	m := &MockStore{txs: make(map[int64]*Transaction)}
	for _, t := range txs {
		t := t
		m.txs[t.ID] = &t
		m.order = append(m.order, t.ID)
	}
	return m
}

func (m *MockStore) Get(ctx context.Context, id int64) (*Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return nil, apperr.NotFound("transaction", id)
	}
	cp := *t
	return &cp, nil
}

func (m *MockStore) List(ctx context.Context, f Filter) ([]Transaction, error) {
	m.listCalls++
	var out []Transaction
	for _, id := range m.order {
		if t, ok := m.txs[id]; ok {
			out = append(out, *t)
		}
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MockStore) Update(ctx context.Context, t *Transaction) error {
	m.updates++
	cp := *t
	m.txs[t.ID] = &cp
	return nil
}

func (m *MockStore) Delete(ctx context.Context, id int64) error {
	if _, ok := m.txs[id]; !ok {
		return apperr.NotFound("transaction", id)
	}
	delete(m.txs, id)
	return nil
}

// MockLearner records learn calls; a repeated description is not created again
type MockLearner struct {
	calls []string
	seen  map[string]bool
	err   error
}

func (m *MockLearner) Learn(ctx context.Context, description string, categoryID int64, priority int) (*categorization.CategoryRule, bool, error) {
	m.calls = append(m.calls, description)
	if m.err != nil {
		return nil, false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	rule := &categorization.CategoryRule{ID: int64(len(m.calls)), CategoryID: categoryID, Pattern: strings.Fields(description)[0]}
	if m.seen[rule.Pattern] {
		return rule, false, nil
	}
	m.seen[rule.Pattern] = true
	return rule, true, nil
}

type MockCategories map[int64]category.Category

func (m MockCategories) ByID(ctx context.Context) (map[int64]category.Category, error) {
	return m, nil
}

var cats = MockCategories{
	1: {ID: 1, Name: "Mat", Type: category.TypeVariable},
	2: {ID: 2, Name: "Hyra", Type: category.TypeFixed},
}

func newTx(id int64, desc string, amount string) Transaction {
	return Transaction{
		ID:          id,
		Date:        time.Date(2024, 2, int(id), 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		AccountName: "SEB",
	}
}

func TestUpdate_LearnsOnCategoryChange(t *testing.T) {
	store := NewMockStore(newTx(1, "ICA SUPERMARKET STOCKHOLM", "-200"))
	learner := &MockLearner{}
	svc := NewService(store, learner, cats, testLogger)
	ctx := context.Background()

	res, err := svc.Update(ctx, 1, Patch{CategoryID: id(1)}, true)
	require.NoError(t, err)
	assert.True(t, res.Transaction.IsManuallyCategorized)
	require.NotNil(t, res.Rule)
	assert.Equal(t, "ICA", res.Rule.Pattern)

	// same category again: nothing changed, nothing learned
	res, err = svc.Update(ctx, 1, Patch{CategoryID: id(1)}, true)
	require.NoError(t, err)
	assert.Nil(t, res.Rule)
	assert.Len(t, learner.calls, 1)
}

func TestUpdate_NoLearn(t *testing.T) {
	store := NewMockStore(newTx(1, "ICA", "-200"))
	learner := &MockLearner{}
	svc := NewService(store, learner, cats, testLogger)

	res, err := svc.Update(context.Background(), 1, Patch{CategoryID: id(2)}, false)
	require.NoError(t, err)
	assert.Equal(t, id(2), res.Transaction.CategoryID)
	assert.Empty(t, learner.calls)
}

func TestUpdate_LearnFailureKeepsEdit(t *testing.T) {
	store := NewMockStore(newTx(1, "ICA", "-200"))
	svc := NewService(store, &MockLearner{err: errors.New("db down")}, cats, testLogger)

	res, err := svc.Update(context.Background(), 1, Patch{CategoryID: id(1)}, true)
	require.NoError(t, err)
	assert.Nil(t, res.Rule)
	assert.Equal(t, 1, store.updates)
}

func TestUpdate_Errors(t *testing.T) {
	store := NewMockStore(newTx(1, "ICA", "-200"))
	svc := NewService(store, nil, cats, testLogger)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, Patch{CategoryID: id(99)}, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "unknown category")

	_, err = svc.Update(ctx, 42, Patch{ClearCategory: true}, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "unknown transaction")
	assert.Zero(t, store.updates)
}

func TestBulkCategorize(t *testing.T) {
	store := NewMockStore(
		newTx(1, "ICA NARA", "-100"),
		newTx(2, "ICA MAXI", "-200"),
		newTx(3, "COOP", "-50"),
	)
	store.txs[3].CategoryID = id(1)
	learner := &MockLearner{}
	svc := NewService(store, learner, cats, testLogger)

	res, err := svc.BulkCategorize(context.Background(), []int64{1, 2, 3, 7}, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Updated, "transaction 3 already had the category")
	assert.Equal(t, []int64{7}, res.NotFound)
	assert.Equal(t, 1, res.RulesLearned, "both ICA rows learn the same pattern")
	assert.True(t, store.txs[2].IsManuallyCategorized)
}

func TestBulkCategorize_Validation(t *testing.T) {
	svc := NewService(NewMockStore(), nil, cats, testLogger)

	_, err := svc.BulkCategorize(context.Background(), nil, 1, false)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.BulkCategorize(context.Background(), []int64{1}, 99, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExportCSV(t *testing.T) {
	balance := decimal.RequireFromString("12000")
	first := newTx(1, "Lön", "25000")
	first.Balance = &balance
	second := newTx(2, "Hyra; februari", "-9000.5")
	second.CategoryID = id(2)

	store := NewMockStore(first, second)
	svc := NewService(store, nil, cats, testLogger)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, Filter{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date;description;amount;balance;category;account", lines[0])
	assert.Equal(t, "2024-02-01;Lön;25000.00;12000.00;;SEB", lines[1])
	assert.Equal(t, `2024-02-02;"Hyra; februari";-9000.50;;Hyra;SEB`, lines[2])
}

func TestExportCSV_Pages(t *testing.T) {
	var txs []Transaction
	for i := int64(1); i <= MaxLimit+5; i++ {
		txs = append(txs, Transaction{ID: i, Description: "x", Amount: decimal.NewFromInt(-1)})
	}
	store := NewMockStore(txs...)
	svc := NewService(store, nil, cats, testLogger)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, Filter{}))

	assert.Equal(t, 2, store.listCalls)
	assert.Equal(t, MaxLimit+6, strings.Count(buf.String(), "\n"))
}

func TestDelete(t *testing.T) {
	store := NewMockStore(newTx(1, "ICA", "-1"))
	svc := NewService(store, nil, cats, testLogger)

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), apperr.ErrNotFound)
}
