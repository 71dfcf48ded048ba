package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType is a closed set. Free-form strings are parsed at
// the edges with ParseTransactionType and never stored raw.
type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionSale     TransactionType = "sale"
)

func ParseTransactionType(v string) (TransactionType, error) {
	switch strings.ToLower(v) {
	case string(TransactionPurchase):
		return TransactionPurchase, nil
	case string(TransactionSale):
		return TransactionSale, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, v)
}

// StockDelta returns the signed stock movement a transaction of this
// type causes: sales consume stock, purchases replenish it.
func (t TransactionType) StockDelta(quantity int) int {
	if t == TransactionSale {
		return -quantity
	}
	return quantity
}

type Transaction struct {
	ID         int64
	Date       time.Time
	Type       TransactionType
	ProductID  int64
	Quantity   int
	UnitPrice  float64
	TotalPrice float64
	Detail     string
	UpdatedAt  *time.Time
}

// TransactionDraft is the caller's input to the creation saga.
// The unit price is never part of it: the saga snapshots it from the
// catalog at creation time.
type TransactionDraft struct {
	Type      TransactionType
	ProductID int64
	Quantity  int
	Detail    string
}

func (d TransactionDraft) Validate() error {
	if _, err := ParseTransactionType(string(d.Type)); err != nil {
		return err
	}
	if d.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// TransactionPatch carries the editable fields. Product reference and
// unit price are immutable after creation: the total is always
// recomputed from the stored unit price.
type TransactionPatch struct {
	Date     time.Time
	Type     TransactionType
	Quantity int
	Detail   string
}

func (p TransactionPatch) Validate() error {
	if _, err := ParseTransactionType(string(p.Type)); err != nil {
		return err
	}
	if p.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// TransactionsFilter bounds are inclusive on both ends.
type TransactionsFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Type     *TransactionType
}

// CreatedTransaction is the saga outcome. The transaction is durable
// in every case; StockAdjusted reports whether the catalog-side stock
// movement landed. A false value is a terminal state, not a retryable
// one: the ledger entry is kept and the divergence is reported through
// the discrepancy recorder.
type CreatedTransaction struct {
	Transaction   Transaction
	StockAdjusted bool
}

// StockDiscrepancy describes a ledger entry whose implied stock
// movement never reached the catalog.
type StockDiscrepancy struct {
	TransactionID int64
	ProductID     int64
	Delta         int
	Reason        string
}

// ProductHistory groups a product's transactions with its current
// catalog name and stock.
type ProductHistory struct {
	ProductID    int64
	Name         string
	Stock        int
	Transactions []Transaction
}
