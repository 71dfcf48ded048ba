// Package catalogclient is the ledger-side HTTP implementation of the
// catalog gateway port. Calls are plain blocking round-trips with one
// bounded timeout each; nothing is retried — a failure after the
// ledger's commit point must surface, not be papered over.
package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/niksmo/stock-ledger/internal/core/domain"
	"github.com/niksmo/stock-ledger/internal/core/port"
)

var _ port.CatalogGateway = (*Client)(nil)

const defaultTimeout = 5 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func New(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

func (c Client) VerifyStock(
	ctx context.Context, productID int64, quantity int,
) (bool, error) {
	const op = "catalogclient.VerifyStock"

	url := fmt.Sprintf("%s/products/%d/verify-stock?quantity=%d",
		c.baseURL, productID, quantity)

	var payload struct {
		Available bool `json:"available"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return payload.Available, nil
}

func (c Client) UnitPrice(
	ctx context.Context, productID int64,
) (float64, error) {
	const op = "catalogclient.UnitPrice"

	url := fmt.Sprintf("%s/products/%d/unit-price", c.baseURL, productID)

	var price float64
	if err := c.getJSON(ctx, url, &price); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return price, nil
}

func (c Client) AdjustStock(
	ctx context.Context, productID int64, delta int,
) (int, error) {
	const op = "catalogclient.AdjustStock"

	reqBody, _ := json.Marshal(struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}{productID, delta})

	var payload struct {
		StockAfter int `json:"stockAfter"`
	}
	err := c.roundTrip(
		ctx, http.MethodPut, c.baseURL+"/products/adjust-stock",
		reqBody, &payload,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return payload.StockAfter, nil
}

func (c Client) ProductsSummary(
	ctx context.Context, ids []int64,
) ([]domain.ProductSummary, error) {
	const op = "catalogclient.ProductsSummary"

	reqBody, _ := json.Marshal(ids)

	var payload []struct {
		ProductID int64  `json:"productId"`
		Name      string `json:"name"`
		Stock     int    `json:"stock"`
	}
	err := c.roundTrip(
		ctx, http.MethodPost, c.baseURL+"/products/bulk-summary",
		reqBody, &payload,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sums := make([]domain.ProductSummary, len(payload))
	for i, v := range payload {
		sums[i] = domain.ProductSummary{
			ProductID: v.ProductID,
			Name:      v.Name,
			Stock:     v.Stock,
		}
	}
	return sums, nil
}

func (c Client) getJSON(ctx context.Context, url string, dst any) error {
	return c.roundTrip(ctx, http.MethodGet, url, nil, dst)
}

func (c Client) roundTrip(
	ctx context.Context, method, url string, reqBody []byte, dst any,
) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if reqBody != nil {
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := statusErr(res.StatusCode); err != nil {
		return err
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

func statusErr(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return domain.ErrProductNotFound
	case code == http.StatusBadRequest:
		return domain.ErrStockConflict
	default:
		return fmt.Errorf("catalog responded %d", code)
	}
}
