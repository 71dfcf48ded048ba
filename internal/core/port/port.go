package port

import (
	"context"

	"github.com/niksmo/stock-ledger/internal/core/domain"
)

// CatalogGateway is the ledger's capability view of the catalog
// service. It is injected, never constructed inside the core, so saga
// tests substitute an in-process fake for the network client.
type CatalogGateway interface {
	// VerifyStock reports whether current stock covers quantity.
	// Purely advisory: the answer may be stale by the time the
	// caller acts on it.
	VerifyStock(ctx context.Context, productID int64, quantity int) (bool, error)

	UnitPrice(ctx context.Context, productID int64) (float64, error)

	// AdjustStock atomically applies a signed delta and returns the
	// resulting stock. Returns domain.ErrStockConflict without
	// mutation when the result would be negative.
	AdjustStock(ctx context.Context, productID int64, delta int) (int, error)

	// ProductsSummary returns summaries for the ids that exist,
	// silently omitting unknown ones.
	ProductsSummary(ctx context.Context, ids []int64) ([]domain.ProductSummary, error)
}

// DiscrepancyRecorder receives ledger entries whose stock movement
// never reached the catalog. It is the observation point for the
// saga's persisted-but-unadjusted terminal state.
type DiscrepancyRecorder interface {
	RecordStockDiscrepancy(ctx context.Context, d domain.StockDiscrepancy)
}

type ProductsStorage interface {
	SaveProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	Products(ctx context.Context, f domain.ProductsFilter) ([]domain.Product, error)
	ProductByID(ctx context.Context, id int64) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// AdjustProductStock is the single mutation in the system with a
	// hard non-negativity guarantee.
	AdjustProductStock(ctx context.Context, id int64, delta int) (int, error)

	ProductsSummary(ctx context.Context, ids []int64) ([]domain.ProductSummary, error)
}

type TransactionsStorage interface {
	SaveTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
	Transactions(ctx context.Context, f domain.TransactionsFilter) ([]domain.Transaction, error)
	TransactionByID(ctx context.Context, id int64) (domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

type ProductsService interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	Products(ctx context.Context, f domain.ProductsFilter) ([]domain.Product, error)
	ProductByID(ctx context.Context, id int64) (domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// StockService is the catalog-side counterpart of CatalogGateway:
// the capabilities the ledger consumes over the wire.
type StockService interface {
	VerifyStock(ctx context.Context, productID int64, quantity int) (bool, error)
	UnitPrice(ctx context.Context, productID int64) (float64, error)
	AdjustStock(ctx context.Context, productID int64, delta int) (int, error)
	ProductsSummary(ctx context.Context, ids []int64) ([]domain.ProductSummary, error)
}

type TransactionsService interface {
	CreateTransaction(ctx context.Context, d domain.TransactionDraft) (domain.CreatedTransaction, error)
	Transactions(ctx context.Context) ([]domain.Transaction, error)
	TransactionByID(ctx context.Context, id int64) (domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, p domain.TransactionPatch) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	History(ctx context.Context, f domain.TransactionsFilter) ([]domain.ProductHistory, error)
}
