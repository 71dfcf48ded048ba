package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/port"
)

var _ port.ProductsStorage = (*ProductsRepository)(nil)

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) SaveProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "ProductsRepository.SaveProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO products (
			name, description, category, image, price, stock, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, created_at;
	`

	err := r.sqldb.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Category, nullString(p.Image),
		p.Price, p.Stock,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r ProductsRepository) Products(
	ctx context.Context, f domain.ProductsFilter,
) ([]domain.Product, error) {
	const op = "ProductsRepository.Products"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, name, description, category, image,
			price, stock, created_at, updated_at
		FROM products`

	var (
		conds []string
		args  []any
	)
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, "%"+f.Category+"%")
		conds = append(conds, fmt.Sprintf("category ILIKE $%d", len(args)))
	}
	if len(conds) != 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderClause(f)

	rows, err := r.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ps []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// orderClause maps the closed filter enums onto SQL. Filter values
// are validated at the HTTP edge, never interpolated from raw input.
func orderClause(f domain.ProductsFilter) string {
	var col string
	switch f.SortBy {
	case domain.SortByPrice:
		col = "price"
	case domain.SortByStock:
		col = "stock"
	default:
		return " ORDER BY id ASC"
	}

	dir := "ASC"
	if f.Order == domain.OrderDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

func (r ProductsRepository) ProductByID(
	ctx context.Context, id int64,
) (domain.Product, error) {
	const op = "ProductsRepository.ProductByID"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, name, description, category, image,
			price, stock, created_at, updated_at
		FROM products
		WHERE id = $1;`

	p, err := scanProduct(r.sqldb.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf(
				"%s: %w", op, domain.ErrProductNotFound,
			)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r ProductsRepository) UpdateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "ProductsRepository.UpdateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE products
		SET name = $2, description = $3, category = $4, image = $5,
			price = $6, stock = $7, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, category, image,
			price, stock, created_at, updated_at;`

	updated, err := scanProduct(r.sqldb.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.Category, nullString(p.Image),
		p.Price, p.Stock,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf(
				"%s: %w", op, domain.ErrProductNotFound,
			)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (r ProductsRepository) DeleteProduct(
	ctx context.Context, id int64,
) error {
	const op = "ProductsRepository.DeleteProduct"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.sqldb.ExecContext(
		ctx, `DELETE FROM products WHERE id = $1;`, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}
	return nil
}

// AdjustProductStock applies the delta in one guarded UPDATE. The
// WHERE clause is the whole non-negativity invariant: concurrent
// adjustments serialize on the row and an adjustment that would go
// negative matches no row and mutates nothing.
func (r ProductsRepository) AdjustProductStock(
	ctx context.Context, id int64, delta int,
) (int, error) {
	const op = "ProductsRepository.AdjustProductStock"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock;`

	var stock int
	err := r.sqldb.QueryRowContext(ctx, query, id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	// No row matched: either the product is gone or the guard fired.
	var exists bool
	err = r.sqldb.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1);`, id,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return 0, fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}
	return 0, fmt.Errorf("%s: %w", op, domain.ErrStockConflict)
}

func (r ProductsRepository) ProductsSummary(
	ctx context.Context, ids []int64,
) ([]domain.ProductSummary, error) {
	const op = "ProductsRepository.ProductsSummary"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, name, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	sums := make([]domain.ProductSummary, 0, len(ids))
	for rows.Next() {
		var s domain.ProductSummary
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Stock); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sums = append(sums, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sums, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p         domain.Product
		image     sql.NullString
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &image,
		&p.Price, &p.Stock, &p.CreatedAt, &updatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	p.Image = image.String
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return p, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
