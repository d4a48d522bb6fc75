// Package dictionary holds the curated default chart of accounts for a
// commerce business: the standard account groups per type and the starter
// ledgers seeded under them.
package dictionary

import "github.com/storeops/finledger/internal/finance"

// CostOfGoodsCode marks the expense group whose activity counts as cost of
// goods sold in the profit and loss report.
const CostOfGoodsCode = "cost_of_goods_sold"

// InventoryLedgerCode is the starter ledger that the valuation reconciler
// compares against catalog stock value.
const InventoryLedgerCode = "inventory"

type GroupDef struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// LedgerDef is a starter ledger seeded under its group.
type LedgerDef struct {
	GroupCode string `json:"group_code"`
	Code      string `json:"code"`
	Label     string `json:"label"`
}

var curated = map[finance.GroupType][]GroupDef{
	finance.GroupTypeAsset: {
		{Code: "current_assets", Label: "Current Assets", Description: "Cash, bank and other short-term assets"},
		{Code: "stock_in_hand", Label: "Stock in Hand", Description: "Inventory carried at cost"},
		{Code: "receivables", Label: "Receivables", Description: "Amounts owed by customers"},
		{Code: "fixed_assets", Label: "Fixed Assets"},
	},
	finance.GroupTypeLiability: {
		{Code: "current_liabilities", Label: "Current Liabilities"},
		{Code: "payables", Label: "Payables", Description: "Amounts owed to suppliers"},
		{Code: "taxes_payable", Label: "Taxes Payable"},
		{Code: "loans", Label: "Loans"},
	},
	finance.GroupTypeEquity: {
		{Code: "capital", Label: "Capital"},
		{Code: "drawings", Label: "Drawings"},
	},
	finance.GroupTypeIncome: {
		{Code: "sales_revenue", Label: "Sales Revenue"},
		{Code: "shipping_income", Label: "Shipping Income"},
		{Code: "other_income", Label: "Other Income"},
	},
	finance.GroupTypeExpense: {
		{Code: CostOfGoodsCode, Label: "Cost of Goods Sold"},
		{Code: "operating_expenses", Label: "Operating Expenses"},
		{Code: "marketing", Label: "Marketing"},
		{Code: "platform_fees", Label: "Platform Fees"},
		{Code: "shipping_charges", Label: "Shipping Charges"},
	},
}

// starters are the ledgers the dev seed creates under the curated groups.
var starters = []LedgerDef{
	{GroupCode: "current_assets", Code: "cash", Label: "Cash"},
	{GroupCode: "current_assets", Code: "bank", Label: "Bank"},
	{GroupCode: "stock_in_hand", Code: InventoryLedgerCode, Label: "Inventory"},
	{GroupCode: "receivables", Code: "accounts_receivable", Label: "Accounts Receivable"},
	{GroupCode: "payables", Code: "accounts_payable", Label: "Accounts Payable"},
	{GroupCode: "capital", Code: "owner_capital", Label: "Owner Capital"},
	{GroupCode: "sales_revenue", Code: "sales", Label: "Sales"},
	{GroupCode: CostOfGoodsCode, Code: "purchases", Label: "Purchases"},
	{GroupCode: "operating_expenses", Code: "rent", Label: "Rent"},
	{GroupCode: "operating_expenses", Code: "utilities", Label: "Utilities"},
}

// GroupsFor returns curated groups for a type, or all groups when t is nil.
func GroupsFor(t *finance.GroupType) []GroupDef {
	if t == nil {
		out := make([]GroupDef, 0)
		for _, gt := range []finance.GroupType{
			finance.GroupTypeAsset, finance.GroupTypeLiability, finance.GroupTypeEquity,
			finance.GroupTypeIncome, finance.GroupTypeExpense,
		} {
			out = append(out, curated[gt]...)
		}
		return out
	}
	return curated[*t]
}

// TypeOf returns the group type that carries the given curated code.
func TypeOf(code string) (finance.GroupType, bool) {
	for gt, defs := range curated {
		for _, d := range defs {
			if d.Code == code {
				return gt, true
			}
		}
	}
	return "", false
}

// StarterLedgers returns the seed ledger definitions.
func StarterLedgers() []LedgerDef { return starters }
