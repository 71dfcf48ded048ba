package service

import (
	"context"
	"fmt"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/port"
)

var _ port.ProductsService = (*CatalogService)(nil)
var _ port.StockService = (*CatalogService)(nil)

// CatalogService owns product identity, price and stock. Every
// operation is independently atomic against the products storage;
// nothing here coordinates with caller-side state.
type CatalogService struct {
	storage port.ProductsStorage
}

func NewCatalog(storage port.ProductsStorage) CatalogService {
	return CatalogService{storage}
}

func (s CatalogService) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "CatalogService.CreateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := p.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.storage.SaveProduct(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

func (s CatalogService) Products(
	ctx context.Context, f domain.ProductsFilter,
) ([]domain.Product, error) {
	const op = "CatalogService.Products"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps, err := s.storage.Products(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (s CatalogService) ProductByID(
	ctx context.Context, id int64,
) (domain.Product, error) {
	const op = "CatalogService.ProductByID"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.storage.ProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s CatalogService) UpdateProduct(
	ctx context.Context, id int64, p domain.Product,
) (domain.Product, error) {
	const op = "CatalogService.UpdateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := p.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p.ID = id
	updated, err := s.storage.UpdateProduct(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	const op = "CatalogService.DeleteProduct"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyStock reports whether current stock covers quantity. The
// answer is a point-in-time snapshot: no lock is held, so callers
// must treat it as advisory.
func (s CatalogService) VerifyStock(
	ctx context.Context, productID int64, quantity int,
) (bool, error) {
	const op = "CatalogService.VerifyStock"

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if quantity <= 0 {
		return false, fmt.Errorf("%s: %w", op, domain.ErrInvalidQuantity)
	}

	p, err := s.storage.ProductByID(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return p.Stock >= quantity, nil
}

func (s CatalogService) UnitPrice(
	ctx context.Context, productID int64,
) (float64, error) {
	const op = "CatalogService.UnitPrice"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.storage.ProductByID(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return p.Price, nil
}

// AdjustStock applies a signed delta. The non-negative stock
// invariant is enforced by the storage in a single atomic statement;
// this is the system's only hard guard against over-selling.
func (s CatalogService) AdjustStock(
	ctx context.Context, productID int64, delta int,
) (int, error) {
	const op = "CatalogService.AdjustStock"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	stock, err := s.storage.AdjustProductStock(ctx, productID, delta)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return stock, nil
}

func (s CatalogService) ProductsSummary(
	ctx context.Context, ids []int64,
) ([]domain.ProductSummary, error) {
	const op = "CatalogService.ProductsSummary"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sums, err := s.storage.ProductsSummary(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sums, nil
}
