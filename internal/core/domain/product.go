package domain

import "time"

type (
	Product struct {
		ID          int64
		Name        string
		Description string
		Category    string
		Image       string
		Price       float64
		Stock       int
		CreatedAt   time.Time
		UpdatedAt   *time.Time
	}

	// ProductSummary is the trimmed product view served to the
	// ledger's history aggregation.
	ProductSummary struct {
		ProductID int64
		Name      string
		Stock     int
	}
)

func (p Product) Validate() error {
	if p.Name == "" {
		return ErrEmptyProductName
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

type ProductSort string

const (
	SortNone    ProductSort = ""
	SortByPrice ProductSort = "price"
	SortByStock ProductSort = "stock"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ProductsFilter narrows and orders the product listing.
// Zero values leave the corresponding dimension unfiltered.
type ProductsFilter struct {
	Name     string
	Category string
	SortBy   ProductSort
	Order    SortOrder
}
