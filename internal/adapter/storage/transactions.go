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

var _ port.TransactionsStorage = (*TransactionsRepository)(nil)

// TransactionsRepository persists ledger entries. The product_id
// column is a weak reference: the products table lives in another
// service's schema and no constraint spans the boundary.
type TransactionsRepository struct {
	sqldb sqldb
}

func NewTransactionsRepository(sqldb sqldb) TransactionsRepository {
	return TransactionsRepository{sqldb}
}

func (r TransactionsRepository) SaveTransaction(
	ctx context.Context, t domain.Transaction,
) (domain.Transaction, error) {
	const op = "TransactionsRepository.SaveTransaction"

	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO transactions (
			date, type, product_id, quantity,
			unit_price, total_price, detail
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`

	err := r.sqldb.QueryRowContext(ctx, query,
		t.Date, string(t.Type), t.ProductID, t.Quantity,
		t.UnitPrice, t.TotalPrice, t.Detail,
	).Scan(&t.ID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (r TransactionsRepository) Transactions(
	ctx context.Context, f domain.TransactionsFilter,
) ([]domain.Transaction, error) {
	const op = "TransactionsRepository.Transactions"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, date, type, product_id, quantity,
			unit_price, total_price, detail, updated_at
		FROM transactions`

	var (
		conds []string
		args  []any
	)
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(conds) != 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC;"

	rows, err := r.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ts []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ts = append(ts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ts, nil
}

func (r TransactionsRepository) TransactionByID(
	ctx context.Context, id int64,
) (domain.Transaction, error) {
	const op = "TransactionsRepository.TransactionByID"

	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, date, type, product_id, quantity,
			unit_price, total_price, detail, updated_at
		FROM transactions
		WHERE id = $1;`

	t, err := scanTransaction(r.sqldb.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, fmt.Errorf(
				"%s: %w", op, domain.ErrTransactionNotFound,
			)
		}
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (r TransactionsRepository) UpdateTransaction(
	ctx context.Context, t domain.Transaction,
) (domain.Transaction, error) {
	const op = "TransactionsRepository.UpdateTransaction"

	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE transactions
		SET date = $2, type = $3, quantity = $4,
			total_price = $5, detail = $6, updated_at = now()
		WHERE id = $1
		RETURNING id, date, type, product_id, quantity,
			unit_price, total_price, detail, updated_at;`

	updated, err := scanTransaction(r.sqldb.QueryRowContext(ctx, query,
		t.ID, t.Date, string(t.Type), t.Quantity, t.TotalPrice, t.Detail,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, fmt.Errorf(
				"%s: %w", op, domain.ErrTransactionNotFound,
			)
		}
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (r TransactionsRepository) DeleteTransaction(
	ctx context.Context, id int64,
) error {
	const op = "TransactionsRepository.DeleteTransaction"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.sqldb.ExecContext(
		ctx, `DELETE FROM transactions WHERE id = $1;`, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrTransactionNotFound)
	}
	return nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		t         domain.Transaction
		rawType   string
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.Date, &rawType, &t.ProductID, &t.Quantity,
		&t.UnitPrice, &t.TotalPrice, &t.Detail, &updatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.Type, err = domain.ParseTransactionType(rawType)
	if err != nil {
		return domain.Transaction{}, err
	}
	if updatedAt.Valid {
		t.UpdatedAt = &updatedAt.Time
	}
	return t, nil
}
