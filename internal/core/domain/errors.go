package domain

import "errors"

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientStock is returned when a sale requests more
	// units than the catalog currently reports available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockConflict is returned when a stock adjustment would
	// drive the stored stock value below zero.
	ErrStockConflict = errors.New("stock adjustment would go negative")

	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrInvalidPrice           = errors.New("price must be non-negative")
	ErrInvalidStock           = errors.New("stock must be non-negative")
	ErrEmptyProductName       = errors.New("product name is required")
)
