// Package balance derives ledger balances from approved activity. Balances
// are never stored: every figure here is a fold over the transaction journal.
package balance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
)

type Repo interface {
	GetLedger(ctx context.Context, id uuid.UUID) (finance.Ledger, error)
	GetGroup(ctx context.Context, id uuid.UUID) (finance.AccountGroup, error)
	ListTransactions(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error)
}

// Balance is a ledger's derived position at a point in time.
type Balance struct {
	LedgerID     uuid.UUID  `json:"ledger_id"`
	Currency     string     `json:"currency"`
	BalanceMinor int64      `json:"balance_minor"`
	AsOf         *time.Time `json:"as_of,omitempty"`
}

// RunningEntry is one journal leg annotated with the ledger balance after it.
type RunningEntry struct {
	Date                time.Time       `json:"date"`
	TransactionID       uuid.UUID       `json:"transaction_id"`
	EntryID             uuid.UUID       `json:"entry_id"`
	Description         string          `json:"description"`
	Side                finance.Side    `json:"side"`
	AmountMinor         int64           `json:"amount_minor"`
	RunningBalanceMinor int64           `json:"running_balance_minor"`
}

type Service interface {
	// LedgerBalance returns opening balance plus the normal-signed sum of
	// approved entries dated at or before asOf (all history when nil).
	LedgerBalance(ctx context.Context, ledgerID uuid.UUID, asOf *time.Time) (Balance, error)
	// RunningBalance walks the ledger's approved entries in (date, insertion)
	// order across [from, to], starting from the balance just before from.
	RunningBalance(ctx context.Context, ledgerID uuid.UUID, from, to *time.Time) (opening int64, entries []RunningEntry, err error)
	// ActivityTotals returns the raw debit and credit side totals over [from, to].
	ActivityTotals(ctx context.Context, ledgerID uuid.UUID, from, to *time.Time) (debitMinor, creditMinor int64, err error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

func (s *service) LedgerBalance(ctx context.Context, ledgerID uuid.UUID, asOf *time.Time) (Balance, error) {
	if ledgerID == uuid.Nil {
		return Balance{}, errs.ErrInvalid
	}
	led, err := s.repo.GetLedger(ctx, ledgerID)
	if err != nil {
		return Balance{}, err
	}
	group, err := s.repo.GetGroup(ctx, led.GroupID)
	if err != nil {
		return Balance{}, err
	}
	approved := finance.StatusApproved
	txs, err := s.repo.ListTransactions(ctx, finance.TransactionFilter{
		To: asOf, LedgerID: &ledgerID, Status: &approved,
	})
	if err != nil {
		return Balance{}, err
	}
	bal := led.OpeningBalanceMinor
	for _, tx := range txs {
		for _, e := range tx.Entries {
			if e.LedgerID != ledgerID {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			bal += group.Type.SignedDelta(e.Side, m)
		}
	}
	return Balance{LedgerID: ledgerID, Currency: led.Currency, BalanceMinor: bal, AsOf: asOf}, nil
}

func (s *service) RunningBalance(ctx context.Context, ledgerID uuid.UUID, from, to *time.Time) (int64, []RunningEntry, error) {
	if ledgerID == uuid.Nil {
		return 0, nil, errs.ErrInvalid
	}
	led, err := s.repo.GetLedger(ctx, ledgerID)
	if err != nil {
		return 0, nil, err
	}
	group, err := s.repo.GetGroup(ctx, led.GroupID)
	if err != nil {
		return 0, nil, err
	}
	approved := finance.StatusApproved
	txs, err := s.repo.ListTransactions(ctx, finance.TransactionFilter{
		To: to, LedgerID: &ledgerID, Status: &approved,
	})
	if err != nil {
		return 0, nil, err
	}
	// The list already arrives in (date, seq) order; split it at `from`.
	opening := led.OpeningBalanceMinor
	run := opening
	entries := make([]RunningEntry, 0)
	for _, tx := range txs {
		inRange := from == nil || !tx.Date.Before(*from)
		for _, e := range tx.Entries {
			if e.LedgerID != ledgerID {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			delta := group.Type.SignedDelta(e.Side, m)
			if !inRange {
				opening += delta
				run = opening
				continue
			}
			run += delta
			entries = append(entries, RunningEntry{
				Date:                tx.Date,
				TransactionID:       tx.ID,
				EntryID:             e.ID,
				Description:         pickDescription(e.Description, tx.Description),
				Side:                e.Side,
				AmountMinor:         m,
				RunningBalanceMinor: run,
			})
		}
	}
	return opening, entries, nil
}

func (s *service) ActivityTotals(ctx context.Context, ledgerID uuid.UUID, from, to *time.Time) (int64, int64, error) {
	if ledgerID == uuid.Nil {
		return 0, 0, errs.ErrInvalid
	}
	approved := finance.StatusApproved
	txs, err := s.repo.ListTransactions(ctx, finance.TransactionFilter{
		From: from, To: to, LedgerID: &ledgerID, Status: &approved,
	})
	if err != nil {
		return 0, 0, err
	}
	var debit, credit int64
	for _, tx := range txs {
		for _, e := range tx.Entries {
			if e.LedgerID != ledgerID {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			if e.Side == finance.SideDebit {
				debit += m
			} else {
				credit += m
			}
		}
	}
	return debit, credit, nil
}

func pickDescription(entry, tx string) string {
	if entry != "" {
		return entry
	}
	return tx
}
