package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/port"
)

// TransactionsHandler serves the ledger surface. POST runs the
// creation saga; the history route serves the aggregated report.
type TransactionsHandler struct {
	service port.TransactionsService
}

func RegisterTransactions(mux *http.ServeMux, service port.TransactionsService) {
	h := TransactionsHandler{service}
	mux.HandleFunc("POST /transactions", h.CreateTransaction)
	mux.HandleFunc("GET /transactions", h.Transactions)
	mux.HandleFunc("GET /transactions/history", h.History)
	mux.HandleFunc("GET /transactions/{id}", h.TransactionByID)
	mux.HandleFunc("PUT /transactions/{id}", h.UpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", h.DeleteTransaction)
}

func (h TransactionsHandler) CreateTransaction(
	w http.ResponseWriter, r *http.Request,
) {
	const op = "TransactionsHandler.CreateTransaction"
	log := slog.With("op", op)

	var payload TransactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}

	tType, err := domain.ParseTransactionType(payload.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "type must be purchase or sale")
		return
	}

	created, err := h.service.CreateTransaction(r.Context(), domain.TransactionDraft{
		Type:      tType,
		ProductID: payload.ProductID,
		Quantity:  payload.Quantity,
		Detail:    payload.Detail,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			writeError(w, http.StatusBadRequest, "insufficient stock for this sale")
		case errors.Is(err, domain.ErrProductNotFound):
			writeError(w, http.StatusBadRequest, "product not found")
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "quantity must be positive")
		default:
			log.Error("failed to create transaction", "err", err)
			writeInternalError(w)
		}
		return
	}

	// 201 in every terminal state of the saga: the record below is
	// durable even when the stock adjustment did not land.
	writeJSON(w, http.StatusCreated, toTransactionView(created.Transaction))
}

func (h TransactionsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	const op = "TransactionsHandler.Transactions"
	log := slog.With("op", op)

	ts, err := h.service.Transactions(r.Context())
	if err != nil {
		log.Error("failed to list transactions", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionViews(ts))
}

func (h TransactionsHandler) TransactionByID(
	w http.ResponseWriter, r *http.Request,
) {
	const op = "TransactionsHandler.TransactionByID"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.service.TransactionByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Error("failed to get transaction", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionView(t))
}

func (h TransactionsHandler) UpdateTransaction(
	w http.ResponseWriter, r *http.Request,
) {
	const op = "TransactionsHandler.UpdateTransaction"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload TransactionEdit
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}

	tType, err := domain.ParseTransactionType(payload.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "type must be purchase or sale")
		return
	}

	updated, err := h.service.UpdateTransaction(r.Context(), id, domain.TransactionPatch{
		Date:     payload.Date,
		Type:     tType,
		Quantity: payload.Quantity,
		Detail:   payload.Detail,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			writeError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "quantity must be positive")
		default:
			log.Error("failed to update transaction", "err", err)
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, toTransactionView(updated))
}

func (h TransactionsHandler) DeleteTransaction(
	w http.ResponseWriter, r *http.Request,
) {
	const op = "TransactionsHandler.DeleteTransaction"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Error("failed to delete transaction", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, messagePayload{"transaction deleted"})
}

func (h TransactionsHandler) History(w http.ResponseWriter, r *http.Request) {
	const op = "TransactionsHandler.History"
	log := slog.With("op", op)

	filter, err := transactionsFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.service.History(r.Context(), filter)
	if err != nil {
		// A product referenced by the ledger but unknown to the
		// catalog fails the whole report.
		log.Error("failed to aggregate history", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryView(history))
}

func transactionsFilter(r *http.Request) (domain.TransactionsFilter, error) {
	q := r.URL.Query()
	var f domain.TransactionsFilter

	if v := q.Get("dateFrom"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, errors.New("dateFrom must be RFC3339 or YYYY-MM-DD")
		}
		f.DateFrom = &t
	}
	if v := q.Get("dateTo"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, errors.New("dateTo must be RFC3339 or YYYY-MM-DD")
		}
		f.DateTo = &t
	}
	if v := q.Get("type"); v != "" {
		tType, err := domain.ParseTransactionType(v)
		if err != nil {
			return f, errors.New("type must be purchase or sale")
		}
		f.Type = &tType
	}
	return f, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
