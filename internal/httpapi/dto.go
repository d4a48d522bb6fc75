package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
)

// Account groups

type postGroupRequest struct {
	Name        string            `json:"name"`
	Type        finance.GroupType `json:"type"`
	Description string            `json:"description,omitempty"`
}

type patchGroupRequest struct {
	Name        *string            `json:"name,omitempty"`
	Type        *finance.GroupType `json:"type,omitempty"`
	Description *string            `json:"description,omitempty"`
	Active      *bool              `json:"active,omitempty"`
}

type groupResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Type        finance.GroupType `json:"type"`
	Description string            `json:"description,omitempty"`
	Active      bool              `json:"active"`
}

// Ledgers

type postLedgerRequest struct {
	GroupID             uuid.UUID         `json:"group_id"`
	Name                string            `json:"name"`
	Currency            string            `json:"currency,omitempty"`
	OpeningBalanceMinor int64             `json:"opening_balance_minor,omitempty"`
	Description         string            `json:"description,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

type patchLedgerRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Active      *bool             `json:"active,omitempty"`
}

type ledgerResponse struct {
	ID                  uuid.UUID         `json:"id"`
	GroupID             uuid.UUID         `json:"group_id"`
	Name                string            `json:"name"`
	Code                string            `json:"code"`
	Currency            string            `json:"currency"`
	OpeningBalanceMinor int64             `json:"opening_balance_minor"`
	BalanceMinor        *int64            `json:"balance_minor,omitempty"`
	Description         string            `json:"description,omitempty"`
	CreatedBy           string            `json:"created_by,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	Active              bool              `json:"active"`
	CreatedAt           time.Time         `json:"created_at"`
}

// listLedgersQuery holds validated query params for GET /finance/ledgers.
type listLedgersQuery struct {
	GroupID *uuid.UUID
	Type    *finance.GroupType
}

// Transactions

type postTransactionRequest struct {
	Date        *time.Time                `json:"date,omitempty"`
	Type        finance.TransactionType   `json:"type"`
	Status      finance.TransactionStatus `json:"status,omitempty"`
	Currency    string                    `json:"currency"`
	Description string                    `json:"description,omitempty"`
	Notes       string                    `json:"notes,omitempty"`
	Metadata    map[string]string         `json:"metadata,omitempty"`
	Entries     []postTransactionEntry    `json:"entries"`
}

type postTransactionEntry struct {
	LedgerID    uuid.UUID    `json:"ledger_id"`
	Side        finance.Side `json:"side"`
	AmountMinor int64        `json:"amount_minor"`
	Description string       `json:"description,omitempty"`
}

type transactionResponse struct {
	ID          uuid.UUID                 `json:"id"`
	Date        time.Time                 `json:"date"`
	Type        finance.TransactionType   `json:"type"`
	Status      finance.TransactionStatus `json:"status"`
	Currency    string                    `json:"currency"`
	Description string                    `json:"description,omitempty"`
	Notes       string                    `json:"notes,omitempty"`
	CreatedBy   string                    `json:"created_by,omitempty"`
	ActionedBy  string                    `json:"actioned_by,omitempty"`
	ActionedAt  *time.Time                `json:"actioned_at,omitempty"`
	TotalMinor  int64                     `json:"total_minor"`
	Metadata    map[string]string         `json:"metadata,omitempty"`
	Entries     []entryResponse           `json:"entries"`
}

type entryResponse struct {
	ID          uuid.UUID    `json:"id"`
	LedgerID    uuid.UUID    `json:"ledger_id"`
	Side        finance.Side `json:"side"`
	AmountMinor int64        `json:"amount_minor"`
	Description string       `json:"description,omitempty"`
}

// listTransactionsQuery holds validated query params for GET /finance/transactions.
type listTransactionsQuery struct {
	Filter finance.TransactionFilter
	Cursor string
	Limit  int
}

// listTransactionsResponse wraps transactions with a cursor for pagination.
type listTransactionsResponse struct {
	Items      []transactionResponse `json:"items"`
	NextCursor *string               `json:"next_cursor,omitempty"`
}
