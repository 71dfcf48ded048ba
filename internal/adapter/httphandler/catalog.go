package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/port"
)

// ProductsHandler serves the catalog surface: product CRUD plus the
// stock/price capabilities the ledger consumes.
type ProductsHandler struct {
	products port.ProductsService
	stock    port.StockService
}

func RegisterProducts(
	mux *http.ServeMux, products port.ProductsService, stock port.StockService,
) {
	h := ProductsHandler{products, stock}
	mux.HandleFunc("POST /products", h.CreateProduct)
	mux.HandleFunc("GET /products", h.Products)
	mux.HandleFunc("GET /products/{id}", h.ProductByID)
	mux.HandleFunc("PUT /products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /products/{id}", h.DeleteProduct)
	mux.HandleFunc("GET /products/{id}/verify-stock", h.VerifyStock)
	mux.HandleFunc("GET /products/{id}/unit-price", h.UnitPrice)
	mux.HandleFunc("PUT /products/adjust-stock", h.AdjustStock)
	mux.HandleFunc("POST /products/bulk-summary", h.BulkSummary)
}

func (h ProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.CreateProduct"
	log := slog.With("op", op)

	var payload ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}

	created, err := h.products.CreateProduct(r.Context(), payload.toDomain())
	if err != nil {
		if isValidationErr(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("failed to create product", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, toProductView(created))
}

func (h ProductsHandler) Products(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Products"
	log := slog.With("op", op)

	filter, err := productsFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ps, err := h.products.Products(r.Context(), filter)
	if err != nil {
		log.Error("failed to list products", "err", err)
		writeInternalError(w)
		return
	}

	views := make([]Product, len(ps))
	for i, p := range ps {
		views[i] = toProductView(p)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h ProductsHandler) ProductByID(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.ProductByID"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.products.ProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Error("failed to get product", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, toProductView(p))
}

func (h ProductsHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.UpdateProduct"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}

	updated, err := h.products.UpdateProduct(r.Context(), id, payload.toDomain())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case isValidationErr(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error("failed to update product", "err", err)
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, toProductView(updated))
}

func (h ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.DeleteProduct"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Error("failed to delete product", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, messagePayload{"product deleted"})
}

func (h ProductsHandler) VerifyStock(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.VerifyStock"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}

	available, err := h.stock.VerifyStock(r.Context(), id, quantity)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Error("failed to verify stock", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, StockAvailability{available})
}

func (h ProductsHandler) UnitPrice(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.UnitPrice"
	log := slog.With("op", op)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	price, err := h.stock.UnitPrice(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Error("failed to get unit price", "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, price)
}

func (h ProductsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.AdjustStock"
	log := slog.With("op", op)

	var payload StockAdjustment
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}

	stock, err := h.stock.AdjustStock(
		r.Context(), payload.ProductID, payload.Quantity,
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, domain.ErrStockConflict):
			writeError(w, http.StatusBadRequest, "not enough stock for adjustment")
		default:
			log.Error("failed to adjust stock", "err", err)
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, StockAfter{stock})
}

func (h ProductsHandler) BulkSummary(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.BulkSummary"
	log := slog.With("op", op)

	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}

	sums, err := h.stock.ProductsSummary(r.Context(), ids)
	if err != nil {
		log.Error("failed to get products summary", "err", err)
		writeInternalError(w)
		return
	}

	views := make([]ProductSummary, len(sums))
	for i, s := range sums {
		views[i] = ProductSummary{
			ProductID: s.ProductID,
			Name:      s.Name,
			Stock:     s.Stock,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func productsFilter(r *http.Request) (domain.ProductsFilter, error) {
	q := r.URL.Query()
	f := domain.ProductsFilter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
	}

	switch v := q.Get("sort_by"); v {
	case "", string(domain.SortByPrice), string(domain.SortByStock):
		f.SortBy = domain.ProductSort(v)
	default:
		return f, errors.New("sort_by must be price or stock")
	}

	switch v := q.Get("order"); v {
	case "", string(domain.OrderAsc):
		f.Order = domain.OrderAsc
	case string(domain.OrderDesc):
		f.Order = domain.OrderDesc
	default:
		return f, errors.New("order must be asc or desc")
	}
	return f, nil
}

func isValidationErr(err error) bool {
	return errors.Is(err, domain.ErrEmptyProductName) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidStock) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidTransactionType)
}
