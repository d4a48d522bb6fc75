package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/storeops/finledger/internal/meta"
)

// Side represents the accounting position of a transaction entry.
type Side string

const (
	// SideDebit records a value on the debit side of a ledger.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of a ledger.
	SideCredit Side = "credit"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// GroupType enumerates the broad classification of an account group.
type GroupType string

const (
	// GroupTypeAsset increases on the debit side and holds resources owned by the business.
	GroupTypeAsset GroupType = "asset"
	// GroupTypeLiability increases on the credit side and tracks obligations.
	GroupTypeLiability GroupType = "liability"
	// GroupTypeEquity captures the owner's residual interest in the business.
	GroupTypeEquity GroupType = "equity"
	// GroupTypeIncome represents inflows that increase equity.
	GroupTypeIncome GroupType = "income"
	// GroupTypeExpense represents outflows that decrease equity.
	GroupTypeExpense GroupType = "expense"
)

// Valid reports whether t is one of the five recognized group types.
func (t GroupType) Valid() bool {
	switch t {
	case GroupTypeAsset, GroupTypeLiability, GroupTypeEquity, GroupTypeIncome, GroupTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which balances of this type increase.
func (t GroupType) NormalSide() Side {
	switch t {
	case GroupTypeAsset, GroupTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// SignedDelta converts an entry amount into the balance delta for a ledger of
// the given type: positive when the entry side matches the normal side.
func (t GroupType) SignedDelta(side Side, amountMinor int64) int64 {
	if side == t.NormalSide() {
		return amountMinor
	}
	return -amountMinor
}

// TransactionType identifies the business nature of a transaction.
type TransactionType string

const (
	TransactionTypePayment  TransactionType = "payment"
	TransactionTypeReceipt  TransactionType = "receipt"
	TransactionTypeJournal  TransactionType = "journal"
	TransactionTypeSales    TransactionType = "sales"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeContra   TransactionType = "contra"
)

// Valid reports whether t is a recognized transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePayment, TransactionTypeReceipt, TransactionTypeJournal,
		TransactionTypeSales, TransactionTypePurchase, TransactionTypeContra:
		return true
	}
	return false
}

// TransactionStatus tracks a transaction through the approval lifecycle.
// Only approved transactions affect balances and reports.
type TransactionStatus string

const (
	StatusDraft    TransactionStatus = "draft"
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Terminal reports whether the status permits no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// draft -> pending, draft/pending -> approved, draft/pending -> rejected.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusPending:
		return s == StatusDraft
	case StatusApproved, StatusRejected:
		return s == StatusDraft || s == StatusPending
	}
	return false
}

// AccountGroup classifies ledgers under one of the five group types.
// Type is immutable after creation; renames and soft-deletes are allowed.
type AccountGroup struct {
	ID          uuid.UUID
	Name        string
	Type        GroupType
	Description string
	Active      bool
}

// Ledger is a named account within a group. Its balance is always derived
// from the opening balance plus approved activity, never stored.
type Ledger struct {
	ID      uuid.UUID
	GroupID uuid.UUID
	Name    string
	// Code is the slug-normalized unique identifier derived from Name.
	Code     string
	Currency string
	// OpeningBalanceMinor is stated in the group type's normal-balance direction.
	OpeningBalanceMinor int64
	Description         string
	CreatedBy           string
	Metadata            meta.Metadata `json:"metadata,omitempty"`
	Active              bool
	CreatedAt           time.Time
}

// Transaction is a balanced set of entries moving value between ledgers.
type Transaction struct {
	ID          uuid.UUID
	Date        time.Time
	Type        TransactionType
	Status      TransactionStatus
	Currency    string
	Description string
	Notes       string
	CreatedBy   string
	// ActionedBy/ActionedAt record who moved the transaction to its terminal
	// status and when, for approvals and rejections alike.
	ActionedBy string
	ActionedAt *time.Time
	Metadata    meta.Metadata `json:"metadata,omitempty"`
	// Seq is the store-assigned insertion order, the tiebreaker for
	// same-date ordering in listings and running balances.
	Seq     uint64
	Entries []Entry
}

// TotalMinor returns the transaction magnitude: the sum of its debit entries.
func (t Transaction) TotalMinor() int64 {
	var sum int64
	for _, e := range t.Entries {
		if e.Side == SideDebit {
			m, _ := e.Amount.MinorUnits()
			sum += m
		}
	}
	return sum
}

// Entry is one leg of a transaction against a single ledger.
// Entries are immutable once the owning transaction is approved.
type Entry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	LedgerID      uuid.UUID
	Side          Side
	Amount        money.Amount
	Description   string
}

// TransactionFilter narrows transaction listings. Nil fields match everything.
type TransactionFilter struct {
	From     *time.Time
	To       *time.Time
	LedgerID *uuid.UUID
	Status   *TransactionStatus
	Type     *TransactionType
}

// Matches reports whether tx satisfies every set field of the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}
	if f.Type != nil && tx.Type != *f.Type {
		return false
	}
	if f.LedgerID != nil {
		found := false
		for _, e := range tx.Entries {
			if e.LedgerID == *f.LedgerID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
