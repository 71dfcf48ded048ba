package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/port"
)

var _ port.TransactionsService = (*LedgerService)(nil)

// LedgerService owns transaction history and orchestrates the
// stock-affecting creation saga against the catalog gateway.
type LedgerService struct {
	storage       port.TransactionsStorage
	catalog       port.CatalogGateway
	discrepancies port.DiscrepancyRecorder
}

func NewLedger(
	storage port.TransactionsStorage,
	catalog port.CatalogGateway,
	discrepancies port.DiscrepancyRecorder,
) LedgerService {
	if discrepancies == nil {
		discrepancies = DiscrepancyLog{}
	}
	return LedgerService{storage, catalog, discrepancies}
}

// CreateTransaction runs the creation saga, strictly in order:
//
//  1. sales only: advisory stock check, abort on shortage;
//  2. unit price snapshot, abort if the product is gone;
//  3. durable local persist — the commit point;
//  4. catalog stock adjustment.
//
// There is no compensation: a step-4 failure leaves the persisted
// entry in place, reports the divergence to the discrepancy recorder
// and still returns the transaction with StockAdjusted=false.
func (s LedgerService) CreateTransaction(
	ctx context.Context, draft domain.TransactionDraft,
) (domain.CreatedTransaction, error) {
	const op = "LedgerService.CreateTransaction"
	log := slog.With("op", op)

	var zero domain.CreatedTransaction

	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	if err := draft.Validate(); err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	if draft.Type == domain.TransactionSale {
		available, err := s.catalog.VerifyStock(
			ctx, draft.ProductID, draft.Quantity,
		)
		if err != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		if !available {
			return zero, fmt.Errorf(
				"%s: %w", op, domain.ErrInsufficientStock,
			)
		}
	}

	unitPrice, err := s.catalog.UnitPrice(ctx, draft.ProductID)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	t := domain.Transaction{
		Date:       time.Now(),
		Type:       draft.Type,
		ProductID:  draft.ProductID,
		Quantity:   draft.Quantity,
		UnitPrice:  unitPrice,
		TotalPrice: float64(draft.Quantity) * unitPrice,
		Detail:     draft.Detail,
	}

	t, err = s.storage.SaveTransaction(ctx, t)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	// The entry above is durable. Whatever happens to the
	// adjustment, the caller gets the persisted transaction back.
	delta := t.Type.StockDelta(t.Quantity)
	if _, err := s.catalog.AdjustStock(ctx, t.ProductID, delta); err != nil {
		log.Error("stock left unadjusted after ledger commit",
			"transactionID", t.ID,
			"productID", t.ProductID,
			"delta", delta,
			"err", err,
		)
		s.discrepancies.RecordStockDiscrepancy(ctx, domain.StockDiscrepancy{
			TransactionID: t.ID,
			ProductID:     t.ProductID,
			Delta:         delta,
			Reason:        err.Error(),
		})
		return domain.CreatedTransaction{Transaction: t}, nil
	}

	return domain.CreatedTransaction{Transaction: t, StockAdjusted: true}, nil
}

func (s LedgerService) Transactions(
	ctx context.Context,
) ([]domain.Transaction, error) {
	const op = "LedgerService.Transactions"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ts, err := s.storage.Transactions(ctx, domain.TransactionsFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ts, nil
}

func (s LedgerService) TransactionByID(
	ctx context.Context, id int64,
) (domain.Transaction, error) {
	const op = "LedgerService.TransactionByID"

	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	t, err := s.storage.TransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// UpdateTransaction edits date, type, quantity and detail. The total
// is recomputed from the stored unit price: the catalog is never
// consulted, and the product reference and unit price never change.
func (s LedgerService) UpdateTransaction(
	ctx context.Context, id int64, patch domain.TransactionPatch,
) (domain.Transaction, error) {
	const op = "LedgerService.UpdateTransaction"

	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := patch.Validate(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	t, err := s.storage.TransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	t.Date = patch.Date
	t.Type = patch.Type
	t.Quantity = patch.Quantity
	t.TotalPrice = t.UnitPrice * float64(patch.Quantity)
	t.Detail = patch.Detail
	t.UpdatedAt = &now

	updated, err := s.storage.UpdateTransaction(ctx, t)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// DeleteTransaction removes the ledger entry only. The stock movement
// the entry once caused is not reversed.
func (s LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	const op = "LedgerService.DeleteTransaction"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// History joins local transactions with product summaries fetched in
// one batched catalog call. Groups appear in the order their product
// id is first encountered while scanning transactions. A referenced
// product missing from the summary fails the whole request.
func (s LedgerService) History(
	ctx context.Context, f domain.TransactionsFilter,
) ([]domain.ProductHistory, error) {
	const op = "LedgerService.History"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ts, err := s.storage.Transactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := distinctProductIDs(ts)
	if len(ids) == 0 {
		return []domain.ProductHistory{}, nil
	}

	sums, err := s.catalog.ProductsSummary(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byID := make(map[int64]domain.ProductSummary, len(sums))
	for _, sum := range sums {
		byID[sum.ProductID] = sum
	}

	history := make([]domain.ProductHistory, 0, len(ids))
	for _, id := range ids {
		sum, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf(
				"%s: product %d: %w", op, id, domain.ErrProductNotFound,
			)
		}

		var pts []domain.Transaction
		for _, t := range ts {
			if t.ProductID == id {
				pts = append(pts, t)
			}
		}

		history = append(history, domain.ProductHistory{
			ProductID:    id,
			Name:         sum.Name,
			Stock:        sum.Stock,
			Transactions: pts,
		})
	}

	return history, nil
}

func distinctProductIDs(ts []domain.Transaction) []int64 {
	seen := make(map[int64]struct{}, len(ts))
	var ids []int64
	for _, t := range ts {
		if _, ok := seen[t.ProductID]; ok {
			continue
		}
		seen[t.ProductID] = struct{}{}
		ids = append(ids, t.ProductID)
	}
	return ids
}

var _ port.DiscrepancyRecorder = (*DiscrepancyLog)(nil)

// DiscrepancyLog is the default reconciliation hook: it only makes
// the divergence visible to operators.
type DiscrepancyLog struct{}

func (DiscrepancyLog) RecordStockDiscrepancy(
	_ context.Context, d domain.StockDiscrepancy,
) {
	slog.Warn("stock discrepancy",
		"transactionID", d.TransactionID,
		"productID", d.ProductID,
		"delta", d.Delta,
		"reason", d.Reason,
	)
}
