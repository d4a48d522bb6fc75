// Package catalog fetches product variant stock and cost from the commerce
// catalog service. Costs arrive as decimal strings and are converted to
// integer minor units at this boundary; nothing past it touches decimals.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// Variant is one stocked product variant.
type Variant struct {
	ProductID string
	Title     string
	SKU       string
	CostMinor int64
	Quantity  int64
}

// Source lists the variants currently in stock.
type Source interface {
	Variants(ctx context.Context) ([]Variant, error)
}

// Client reads variants over HTTP from the catalog service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type variantPayload struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	SKU       string `json:"sku"`
	// Cost is a decimal string, e.g. "125.50".
	Cost     string `json:"cost"`
	Quantity int64  `json:"quantity"`
}

func (c *Client) Variants(ctx context.Context) ([]Variant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/variants", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog responded %d", resp.StatusCode)
	}
	var payload []variantPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	out := make([]Variant, 0, len(payload))
	for _, p := range payload {
		cost, err := decimal.NewFromString(p.Cost)
		if err != nil {
			return nil, fmt.Errorf("variant %s: bad cost %q: %w", p.SKU, p.Cost, err)
		}
		out = append(out, Variant{
			ProductID: p.ProductID,
			Title:     p.Title,
			SKU:       p.SKU,
			CostMinor: cost.Shift(2).Round(0).IntPart(),
			Quantity:  p.Quantity,
		})
	}
	return out, nil
}
