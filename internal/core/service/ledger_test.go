package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-process catalog gateway backed by a mutex-guarded
// map. AdjustStock reproduces the real store's atomic guard; an optional
// barrier lets tests force concurrent sagas to interleave at the
// check-then-act window.
type fakeCatalog struct {
	mu sync.Mutex

	stock map[int64]int
	price map[int64]float64

	verifyCalls int
	adjustCalls int

	verifyBarrier *sync.WaitGroup
	adjustErr     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		stock: make(map[int64]int),
		price: make(map[int64]float64),
	}
}

func (c *fakeCatalog) addProduct(id int64, stock int, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[id] = stock
	c.price[id] = price
}

func (c *fakeCatalog) currentStock(id int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stock[id]
}

func (c *fakeCatalog) VerifyStock(
	_ context.Context, productID int64, quantity int,
) (bool, error) {
	c.mu.Lock()
	stock, ok := c.stock[productID]
	c.verifyCalls++
	c.mu.Unlock()

	if !ok {
		return false, domain.ErrProductNotFound
	}

	if c.verifyBarrier != nil {
		c.verifyBarrier.Done()
		c.verifyBarrier.Wait()
	}
	return stock >= quantity, nil
}

func (c *fakeCatalog) UnitPrice(
	_ context.Context, productID int64,
) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	price, ok := c.price[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return price, nil
}

func (c *fakeCatalog) AdjustStock(
	_ context.Context, productID int64, delta int,
) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adjustCalls++

	if c.adjustErr != nil {
		return 0, c.adjustErr
	}

	stock, ok := c.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if stock+delta < 0 {
		return 0, domain.ErrStockConflict
	}
	c.stock[productID] = stock + delta
	return c.stock[productID], nil
}

func (c *fakeCatalog) ProductsSummary(
	_ context.Context, ids []int64,
) ([]domain.ProductSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sums []domain.ProductSummary
	for _, id := range ids {
		stock, ok := c.stock[id]
		if !ok {
			continue
		}
		sums = append(sums, domain.ProductSummary{
			ProductID: id,
			Name:      "product",
			Stock:     stock,
		})
	}
	return sums, nil
}

type fakeTransactionsStorage struct {
	mu     sync.Mutex
	nextID int64
	ts     []domain.Transaction
}

func (s *fakeTransactionsStorage) SaveTransaction(
	_ context.Context, t domain.Transaction,
) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.ts = append(s.ts, t)
	return t, nil
}

func (s *fakeTransactionsStorage) Transactions(
	_ context.Context, f domain.TransactionsFilter,
) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Transaction
	for _, t := range s.ts {
		if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && t.Date.After(*f.DateTo) {
			continue
		}
		if f.Type != nil && t.Type != *f.Type {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeTransactionsStorage) TransactionByID(
	_ context.Context, id int64,
) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.ts {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Transaction{}, domain.ErrTransactionNotFound
}

func (s *fakeTransactionsStorage) UpdateTransaction(
	_ context.Context, t domain.Transaction,
) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ts {
		if s.ts[i].ID == t.ID {
			s.ts[i] = t
			return t, nil
		}
	}
	return domain.Transaction{}, domain.ErrTransactionNotFound
}

func (s *fakeTransactionsStorage) DeleteTransaction(
	_ context.Context, id int64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ts {
		if s.ts[i].ID == id {
			s.ts = append(s.ts[:i], s.ts[i+1:]...)
			return nil
		}
	}
	return domain.ErrTransactionNotFound
}

func (s *fakeTransactionsStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ts)
}

type capturingRecorder struct {
	mu sync.Mutex
	ds []domain.StockDiscrepancy
}

func (r *capturingRecorder) RecordStockDiscrepancy(
	_ context.Context, d domain.StockDiscrepancy,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ds = append(r.ds, d)
}

func TestCreateTransaction(t *testing.T) {
	t.Run("SaleHappyPath", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		created, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 1,
			Quantity:  4,
			Detail:    "x",
		})
		require.NoError(t, err)

		assert.True(t, created.StockAdjusted)
		assert.Equal(t, 5.0, created.Transaction.UnitPrice)
		assert.Equal(t, 20.0, created.Transaction.TotalPrice)
		assert.NotZero(t, created.Transaction.ID)
		assert.Equal(t, 6, catalog.currentStock(1))
		assert.Equal(t, 1, storage.count())
	})

	t.Run("SaleInsufficientStock", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 6, 5.0)
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		_, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 1,
			Quantity:  100,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		// Abort pre-commit: no entry is persisted, no stock moves.
		assert.Equal(t, 0, storage.count())
		assert.Equal(t, 6, catalog.currentStock(1))
		assert.Equal(t, 0, catalog.adjustCalls)
	})

	t.Run("SaleUnknownProduct", func(t *testing.T) {
		catalog := newFakeCatalog()
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		_, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 99,
			Quantity:  1,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.Equal(t, 0, storage.count())
	})

	t.Run("PurchaseFromZeroStock", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 0, 3.5)
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		created, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionPurchase,
			ProductID: 1,
			Quantity:  5,
		})
		require.NoError(t, err)

		assert.True(t, created.StockAdjusted)
		assert.Equal(t, 5*3.5, created.Transaction.TotalPrice)
		assert.Equal(t, 5, catalog.currentStock(1))
		// Purchases skip the advisory check entirely.
		assert.Equal(t, 0, catalog.verifyCalls)
	})

	t.Run("PurchaseUnknownProduct", func(t *testing.T) {
		catalog := newFakeCatalog()
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		_, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionPurchase,
			ProductID: 42,
			Quantity:  1,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.Equal(t, 0, storage.count())
	})

	t.Run("InvalidDraft", func(t *testing.T) {
		catalog := newFakeCatalog()
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		_, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 1,
			Quantity:  0,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.Equal(t, 0, catalog.verifyCalls)
	})

	t.Run("AdjustFailureKeepsLedgerEntry", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		catalog.adjustErr = errors.New("connection refused")
		storage := &fakeTransactionsStorage{}
		recorder := &capturingRecorder{}
		svc := service.NewLedger(storage, catalog, recorder)

		created, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 1,
			Quantity:  4,
		})
		require.NoError(t, err)

		// Persisted-but-unadjusted terminal state: the caller still
		// gets the durable record, stock never moved, and the
		// divergence is reported.
		assert.False(t, created.StockAdjusted)
		assert.Equal(t, 1, storage.count())
		assert.Equal(t, 10, catalog.currentStock(1))

		require.Len(t, recorder.ds, 1)
		assert.Equal(t, created.Transaction.ID, recorder.ds[0].TransactionID)
		assert.Equal(t, -4, recorder.ds[0].Delta)
	})

	t.Run("ConcurrentSalesDiverge", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 5, 2.0)

		var barrier sync.WaitGroup
		barrier.Add(2)
		catalog.verifyBarrier = &barrier

		storage := &fakeTransactionsStorage{}
		recorder := &capturingRecorder{}
		svc := service.NewLedger(storage, catalog, recorder)

		type sagaOutcome struct {
			created domain.CreatedTransaction
			err     error
		}

		results := make(chan sagaOutcome, 2)
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				created, err := svc.CreateTransaction(
					context.Background(), domain.TransactionDraft{
						Type:      domain.TransactionSale,
						ProductID: 1,
						Quantity:  5,
					})
				results <- sagaOutcome{created, err}
			}()
		}
		wg.Wait()
		close(results)

		// Both sagas pass the advisory check against stock=5, both
		// persist; only one adjustment is accepted. The loser's entry
		// stays: a ledger row whose stock movement never happened.
		assert.Equal(t, 2, storage.count())
		assert.Equal(t, 0, catalog.currentStock(1))

		var adjusted, unadjusted int
		for outcome := range results {
			require.NoError(t, outcome.err)
			if outcome.created.StockAdjusted {
				adjusted++
			} else {
				unadjusted++
			}
		}
		assert.Equal(t, 1, adjusted)
		assert.Equal(t, 1, unadjusted)
		require.Len(t, recorder.ds, 1)
	})
}

func TestUpdateTransaction(t *testing.T) {
	seed := func(t *testing.T) (service.LedgerService, *fakeTransactionsStorage, *fakeCatalog) {
		t.Helper()
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		_, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 1,
			Quantity:  2,
			Detail:    "initial",
		})
		require.NoError(t, err)
		return svc, storage, catalog
	}

	t.Run("RecomputesTotalFromStoredUnitPrice", func(t *testing.T) {
		svc, _, catalog := seed(t)
		adjustCallsBefore := catalog.adjustCalls

		updated, err := svc.UpdateTransaction(t.Context(), 1, domain.TransactionPatch{
			Date:     time.Now(),
			Type:     domain.TransactionSale,
			Quantity: 7,
			Detail:   "edited",
		})
		require.NoError(t, err)

		assert.Equal(t, 5.0, updated.UnitPrice)
		assert.Equal(t, 35.0, updated.TotalPrice)
		assert.Equal(t, int64(1), updated.ProductID)
		require.NotNil(t, updated.UpdatedAt)

		// Editing never touches the catalog.
		assert.Equal(t, adjustCallsBefore, catalog.adjustCalls)
		assert.Equal(t, 8, catalog.currentStock(1))
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, _, _ := seed(t)
		_, err := svc.UpdateTransaction(t.Context(), 404, domain.TransactionPatch{
			Date:     time.Now(),
			Type:     domain.TransactionSale,
			Quantity: 1,
		})
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("InvalidPatch", func(t *testing.T) {
		svc, _, _ := seed(t)
		_, err := svc.UpdateTransaction(t.Context(), 1, domain.TransactionPatch{
			Date:     time.Now(),
			Type:     domain.TransactionSale,
			Quantity: 0,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("LeavesStockUntouched", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		created, err := svc.CreateTransaction(t.Context(), domain.TransactionDraft{
			Type:      domain.TransactionSale,
			ProductID: 1,
			Quantity:  4,
		})
		require.NoError(t, err)
		require.Equal(t, 6, catalog.currentStock(1))
		adjustCallsBefore := catalog.adjustCalls

		err = svc.DeleteTransaction(t.Context(), created.Transaction.ID)
		require.NoError(t, err)

		// Deleting the entry does not reverse the movement it caused.
		assert.Equal(t, 0, storage.count())
		assert.Equal(t, 6, catalog.currentStock(1))
		assert.Equal(t, adjustCallsBefore, catalog.adjustCalls)
	})

	t.Run("NotFound", func(t *testing.T) {
		catalog := newFakeCatalog()
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		err := svc.DeleteTransaction(t.Context(), 404)
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}

func TestHistory(t *testing.T) {
	date := func(day int) time.Time {
		return time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC)
	}

	seedTransactions := func(s *fakeTransactionsStorage, ts ...domain.Transaction) {
		for _, t := range ts {
			_, _ = s.SaveTransaction(context.Background(), t)
		}
	}

	t.Run("GroupsByFirstEncounterOrder", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		catalog.addProduct(2, 3, 7.0)
		storage := &fakeTransactionsStorage{}
		seedTransactions(storage,
			domain.Transaction{Date: date(1), Type: domain.TransactionSale, ProductID: 2, Quantity: 1, UnitPrice: 7, TotalPrice: 7},
			domain.Transaction{Date: date(2), Type: domain.TransactionPurchase, ProductID: 1, Quantity: 5, UnitPrice: 5, TotalPrice: 25},
			domain.Transaction{Date: date(3), Type: domain.TransactionSale, ProductID: 2, Quantity: 2, UnitPrice: 7, TotalPrice: 14},
		)
		svc := service.NewLedger(storage, catalog, nil)

		history, err := svc.History(t.Context(), domain.TransactionsFilter{})
		require.NoError(t, err)

		require.Len(t, history, 2)
		assert.Equal(t, int64(2), history[0].ProductID)
		assert.Equal(t, int64(1), history[1].ProductID)

		require.Len(t, history[0].Transactions, 2)
		assert.Equal(t, date(1), history[0].Transactions[0].Date)
		assert.Equal(t, date(3), history[0].Transactions[1].Date)
		assert.Equal(t, 3, history[0].Stock)
	})

	t.Run("DateRangeInclusive", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		storage := &fakeTransactionsStorage{}
		seedTransactions(storage,
			domain.Transaction{Date: date(1), Type: domain.TransactionSale, ProductID: 1, Quantity: 1},
			domain.Transaction{Date: date(2), Type: domain.TransactionSale, ProductID: 1, Quantity: 2},
			domain.Transaction{Date: date(3), Type: domain.TransactionSale, ProductID: 1, Quantity: 3},
			domain.Transaction{Date: date(4), Type: domain.TransactionSale, ProductID: 1, Quantity: 4},
		)
		svc := service.NewLedger(storage, catalog, nil)

		from, to := date(2), date(3)
		history, err := svc.History(t.Context(), domain.TransactionsFilter{
			DateFrom: &from,
			DateTo:   &to,
		})
		require.NoError(t, err)

		require.Len(t, history, 1)
		require.Len(t, history[0].Transactions, 2)
		assert.Equal(t, 2, history[0].Transactions[0].Quantity)
		assert.Equal(t, 3, history[0].Transactions[1].Quantity)
	})

	t.Run("TypeFilter", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		storage := &fakeTransactionsStorage{}
		seedTransactions(storage,
			domain.Transaction{Date: date(1), Type: domain.TransactionSale, ProductID: 1, Quantity: 1},
			domain.Transaction{Date: date(2), Type: domain.TransactionPurchase, ProductID: 1, Quantity: 2},
		)
		svc := service.NewLedger(storage, catalog, nil)

		saleType := domain.TransactionSale
		history, err := svc.History(t.Context(), domain.TransactionsFilter{
			Type: &saleType,
		})
		require.NoError(t, err)

		require.Len(t, history, 1)
		require.Len(t, history[0].Transactions, 1)
		assert.Equal(t, domain.TransactionSale, history[0].Transactions[0].Type)
	})

	t.Run("Empty", func(t *testing.T) {
		catalog := newFakeCatalog()
		storage := &fakeTransactionsStorage{}
		svc := service.NewLedger(storage, catalog, nil)

		history, err := svc.History(t.Context(), domain.TransactionsFilter{})
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("MissingProductFailsWholeRequest", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.addProduct(1, 10, 5.0)
		storage := &fakeTransactionsStorage{}
		seedTransactions(storage,
			domain.Transaction{Date: date(1), Type: domain.TransactionSale, ProductID: 1, Quantity: 1},
			domain.Transaction{Date: date(2), Type: domain.TransactionSale, ProductID: 77, Quantity: 1},
		)
		svc := service.NewLedger(storage, catalog, nil)

		_, err := svc.History(t.Context(), domain.TransactionsFilter{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}
