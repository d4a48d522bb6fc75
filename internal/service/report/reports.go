package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
)

// Report shapes returned by the generator. All money is integer minor units;
// percentages are ratios over the relevant total, rounded to two decimals.

type DayBookRow struct {
	Date                time.Time               `json:"date"`
	TransactionID       uuid.UUID               `json:"transaction_id"`
	Type                finance.TransactionType `json:"type"`
	Description         string                  `json:"description"`
	LedgerID            uuid.UUID               `json:"ledger_id"`
	LedgerName          string                  `json:"ledger_name"`
	Side                finance.Side            `json:"side"`
	AmountMinor         int64                   `json:"amount_minor"`
	// RunningBalanceMinor is the balance of this row's own ledger after the
	// row is applied.
	RunningBalanceMinor int64 `json:"running_balance_minor"`
}

type DayBook struct {
	From                time.Time    `json:"from"`
	To                  time.Time    `json:"to"`
	Currency            string       `json:"currency"`
	OpeningBalanceMinor int64        `json:"opening_balance_minor"`
	ClosingBalanceMinor int64        `json:"closing_balance_minor"`
	TotalDebitMinor     int64        `json:"total_debit_minor"`
	TotalCreditMinor    int64        `json:"total_credit_minor"`
	Rows                []DayBookRow `json:"rows"`
}

type StatementRow struct {
	Date                time.Time               `json:"date"`
	TransactionID       uuid.UUID               `json:"transaction_id"`
	Type                finance.TransactionType `json:"type"`
	Description         string                  `json:"description"`
	Side                finance.Side            `json:"side"`
	AmountMinor         int64                   `json:"amount_minor"`
	RunningBalanceMinor int64                   `json:"running_balance_minor"`
}

type LedgerStatement struct {
	LedgerID            uuid.UUID      `json:"ledger_id"`
	LedgerName          string         `json:"ledger_name"`
	Code                string         `json:"code"`
	Currency            string         `json:"currency"`
	From                time.Time      `json:"from"`
	To                  time.Time      `json:"to"`
	OpeningBalanceMinor int64          `json:"opening_balance_minor"`
	TotalDebitMinor     int64          `json:"total_debit_minor"`
	TotalCreditMinor    int64          `json:"total_credit_minor"`
	ClosingBalanceMinor int64          `json:"closing_balance_minor"`
	Rows                []StatementRow `json:"rows"`
}

type TrialBalanceRow struct {
	LedgerID            uuid.UUID         `json:"ledger_id"`
	LedgerName          string            `json:"ledger_name"`
	Code                string            `json:"code"`
	GroupName           string            `json:"group_name"`
	Type                finance.GroupType `json:"type"`
	OpeningBalanceMinor int64             `json:"opening_balance_minor"`
	DebitTotalMinor     int64             `json:"debit_total_minor"`
	CreditTotalMinor    int64             `json:"credit_total_minor"`
	ClosingBalanceMinor int64             `json:"closing_balance_minor"`
}

type TrialBalance struct {
	AsOf             time.Time         `json:"as_of"`
	Rows             []TrialBalanceRow `json:"rows"`
	TotalDebitMinor  int64             `json:"total_debit_minor"`
	TotalCreditMinor int64             `json:"total_credit_minor"`
	// IsBalanced=false is an invariant violation: it is reported and alerted,
	// never silently corrected.
	IsBalanced bool `json:"is_balanced"`
}

type ProfitLossLine struct {
	LedgerID    uuid.UUID `json:"ledger_id"`
	LedgerName  string    `json:"ledger_name"`
	AmountMinor int64     `json:"amount_minor"`
	Percent     float64   `json:"percent"`
}

type ProfitLossGroup struct {
	GroupID    uuid.UUID        `json:"group_id"`
	GroupName  string           `json:"group_name"`
	TotalMinor int64            `json:"total_minor"`
	Lines      []ProfitLossLine `json:"lines"`
}

type ProfitLoss struct {
	From               time.Time         `json:"from"`
	To                 time.Time         `json:"to"`
	Income             []ProfitLossGroup `json:"income"`
	Expenses           []ProfitLossGroup `json:"expenses"`
	TotalIncomeMinor   int64             `json:"total_income_minor"`
	TotalExpenseMinor  int64             `json:"total_expense_minor"`
	CostOfGoodsMinor   int64             `json:"cost_of_goods_minor"`
	NetProfitMinor     int64             `json:"net_profit_minor"`
	GrossMarginPercent float64           `json:"gross_margin_percent"`
}

type BalanceSheetLine struct {
	LedgerID     uuid.UUID `json:"ledger_id"`
	LedgerName   string    `json:"ledger_name"`
	BalanceMinor int64     `json:"balance_minor"`
}

type BalanceSheetSection struct {
	TotalMinor int64              `json:"total_minor"`
	Lines      []BalanceSheetLine `json:"lines"`
}

type BalanceSheet struct {
	AsOf                  time.Time           `json:"as_of"`
	Assets                BalanceSheetSection `json:"assets"`
	Liabilities           BalanceSheetSection `json:"liabilities"`
	Equity                BalanceSheetSection `json:"equity"`
	RetainedEarningsMinor int64               `json:"retained_earnings_minor"`
	IsBalanced            bool                `json:"is_balanced"`
}
