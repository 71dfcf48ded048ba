package httphandler

import (
	"time"

	"github.com/niksmo/stock-ledger/internal/core/domain"
)

type (
	ProductPayload struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Image       string  `json:"image,omitempty"`
		Price       float64 `json:"price"`
		Stock       int     `json:"stock"`
	}

	Product struct {
		ID          int64      `json:"id"`
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Category    string     `json:"category"`
		Image       string     `json:"image,omitempty"`
		Price       float64    `json:"price"`
		Stock       int        `json:"stock"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	}

	StockAvailability struct {
		Available bool `json:"available"`
	}

	StockAdjustment struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}

	StockAfter struct {
		StockAfter int `json:"stockAfter"`
	}

	ProductSummary struct {
		ProductID int64  `json:"productId"`
		Name      string `json:"name"`
		Stock     int    `json:"stock"`
	}
)

func (p ProductPayload) toDomain() domain.Product {
	return domain.Product{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

func toProductView(p domain.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type (
	TransactionPayload struct {
		Type      string `json:"type"`
		ProductID int64  `json:"productId"`
		Quantity  int    `json:"quantity"`
		Detail    string `json:"detail"`
	}

	TransactionEdit struct {
		Date     time.Time `json:"date"`
		Type     string    `json:"type"`
		Quantity int       `json:"quantity"`
		Detail   string    `json:"detail"`
	}

	Transaction struct {
		ID         int64      `json:"id"`
		Date       time.Time  `json:"date"`
		Type       string     `json:"type"`
		ProductID  int64      `json:"productId"`
		Quantity   int        `json:"quantity"`
		UnitPrice  float64    `json:"unitPrice"`
		TotalPrice float64    `json:"totalPrice"`
		Detail     string     `json:"detail"`
		UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	}

	ProductHistory struct {
		ProductID    int64         `json:"productId"`
		Name         string        `json:"name"`
		Stock        int           `json:"stock"`
		Transactions []Transaction `json:"transactions"`
	}
)

func toTransactionView(t domain.Transaction) Transaction {
	return Transaction{
		ID:         t.ID,
		Date:       t.Date,
		Type:       string(t.Type),
		ProductID:  t.ProductID,
		Quantity:   t.Quantity,
		UnitPrice:  t.UnitPrice,
		TotalPrice: t.TotalPrice,
		Detail:     t.Detail,
		UpdatedAt:  t.UpdatedAt,
	}
}

func toTransactionViews(ts []domain.Transaction) []Transaction {
	views := make([]Transaction, len(ts))
	for i, t := range ts {
		views[i] = toTransactionView(t)
	}
	return views
}

func toHistoryView(hs []domain.ProductHistory) []ProductHistory {
	views := make([]ProductHistory, len(hs))
	for i, h := range hs {
		views[i] = ProductHistory{
			ProductID:    h.ProductID,
			Name:         h.Name,
			Stock:        h.Stock,
			Transactions: toTransactionViews(h.Transactions),
		}
	}
	return views
}
