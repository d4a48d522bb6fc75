package finance

import "time"

// InventorySnapshot is the result of reconciling catalog-derived stock value
// against the Inventory ledger. It is computed on demand and never persisted
// or posted back to the ledger.
type InventorySnapshot struct {
	TotalInventoryValueMinor int64               `json:"total_inventory_value_minor"`
	TotalItems               int                 `json:"total_items"`
	TotalQuantity            int64               `json:"total_quantity"`
	AverageCostMinor         int64               `json:"average_cost_minor"`
	Currency                 string              `json:"currency"`
	LedgerBalanceMinor       int64               `json:"ledger_balance_minor"`
	// VarianceMinor is catalog value minus ledger balance. A non-zero value
	// signals drift between operational stock and the books.
	VarianceMinor int64                 `json:"variance_minor"`
	CalculatedAt  time.Time             `json:"calculated_at"`
	Items         []InventoryItem       `json:"items"`
	Error         string                `json:"error,omitempty"`
}

// InventoryItem is one catalog variant's contribution to the stock value.
type InventoryItem struct {
	ProductID        string `json:"product_id"`
	Title            string `json:"title"`
	SKU              string `json:"sku"`
	CostPerItemMinor int64  `json:"cost_per_item_minor"`
	Quantity         int64  `json:"quantity"`
	TotalValueMinor  int64  `json:"total_value_minor"`
}
