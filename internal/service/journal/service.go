// Package journal implements the transaction journal: balanced-entry
// validation, the draft/pending -> approved/rejected lifecycle, and stable
// (date, insertion order) listings.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/events"
	"github.com/storeops/finledger/internal/finance"
)

// Repo defines read operations needed by the service.
type Repo interface {
	LedgersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]finance.Ledger, error)
	ListTransactions(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (finance.Transaction, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	// CreateTransaction persists the header and all entries as one atomic unit.
	CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
	// TransitionStatus moves a transaction to a new status only if its current
	// status is in from. It returns errs.ErrAlreadyTerminal when the guard
	// fails on a terminal transaction.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []finance.TransactionStatus, to finance.TransactionStatus, actor string, at time.Time) (finance.Transaction, error)
}

// Service exposes validation, creation and lifecycle of transactions.
type Service interface {
	Validate(ctx context.Context, tx finance.Transaction) error
	Create(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (finance.Transaction, error)
	List(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error)
	Approve(ctx context.Context, id uuid.UUID, actor string) (finance.Transaction, error)
	Reject(ctx context.Context, id uuid.UUID, actor string) (finance.Transaction, error)
}

type service struct {
	repo   Repo
	writer Writer
	events events.Publisher
	log    *slog.Logger
}

func New(repo Repo, writer Writer, pub events.Publisher, log *slog.Logger) Service {
	if pub == nil {
		pub = events.Noop()
	}
	return &service{repo: repo, writer: writer, events: pub, log: log}
}

func (s *service) Validate(ctx context.Context, tx finance.Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", errs.ErrInvalid, tx.Type)
	}
	if tx.Currency == "" {
		return fmt.Errorf("%w: currency is required", errs.ErrInvalid)
	}
	if tx.Status != finance.StatusDraft && tx.Status != finance.StatusPending {
		return fmt.Errorf("%w: new transactions must be draft or pending", errs.ErrInvalid)
	}
	if len(tx.Entries) < 2 {
		return fmt.Errorf("%w: a transaction needs at least 2 entries", errs.ErrTooFewEntries)
	}

	ids := make([]uuid.UUID, 0, len(tx.Entries))
	var sumDebits, sumCredits int64
	for i, e := range tx.Entries {
		if e.LedgerID == uuid.Nil {
			return fmt.Errorf("entry[%d]: %w: ledger_id required", i, errs.ErrUnknownLedger)
		}
		units, _ := e.Amount.MinorUnits()
		if units <= 0 {
			return fmt.Errorf("entry[%d]: %w: amount must be > 0", i, errs.ErrInvalidAmount)
		}
		switch e.Side {
		case finance.SideDebit:
			sumDebits += units
		case finance.SideCredit:
			sumCredits += units
		default:
			return fmt.Errorf("entry[%d]: %w: side must be debit or credit", i, errs.ErrInvalidSide)
		}
		ids = append(ids, e.LedgerID)
	}
	if sumDebits != sumCredits {
		return fmt.Errorf("%w: sum(debits)=%d != sum(credits)=%d", errs.ErrUnbalanced, sumDebits, sumCredits)
	}

	ledgers, err := s.repo.LedgersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i, e := range tx.Entries {
		l, ok := ledgers[e.LedgerID]
		if !ok {
			return fmt.Errorf("entry[%d]: %w: %s", i, errs.ErrUnknownLedger, e.LedgerID)
		}
		if !l.Active {
			return fmt.Errorf("entry[%d]: %w: %s", i, errs.ErrInactiveLedger, l.Code)
		}
		if !strings.EqualFold(l.Currency, tx.Currency) {
			return fmt.Errorf("entry[%d]: %w: ledger %s is %s, transaction is %s", i, errs.ErrCurrencyMismatch, l.Code, l.Currency, tx.Currency)
		}
	}
	return nil
}

// Create assumes Validate has been called and persists the transaction with
// fresh identifiers as one atomic unit.
func (s *service) Create(ctx context.Context, tx finance.Transaction) (finance.Transaction, error) {
	txID := uuid.New()
	entries := make([]finance.Entry, len(tx.Entries))
	for i, e := range tx.Entries {
		e.ID = uuid.New()
		e.TransactionID = txID
		entries[i] = e
	}
	tx.ID = txID
	tx.Entries = entries
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	return s.writer.CreateTransaction(ctx, tx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (finance.Transaction, error) {
	if id == uuid.Nil {
		return finance.Transaction{}, errs.ErrInvalid
	}
	return s.repo.GetTransaction(ctx, id)
}

func (s *service) List(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error) {
	return s.repo.ListTransactions(ctx, f)
}

// Approve posts the transaction. The store applies the status guard
// atomically, so a losing concurrent approver observes ErrAlreadyTerminal
// rather than a double post.
func (s *service) Approve(ctx context.Context, id uuid.UUID, actor string) (finance.Transaction, error) {
	if id == uuid.Nil {
		return finance.Transaction{}, errs.ErrInvalid
	}
	if strings.TrimSpace(actor) == "" {
		return finance.Transaction{}, fmt.Errorf("%w: approver is required", errs.ErrInvalid)
	}
	tx, err := s.writer.TransitionStatus(ctx, id,
		[]finance.TransactionStatus{finance.StatusDraft, finance.StatusPending},
		finance.StatusApproved, actor, time.Now().UTC())
	if err != nil {
		return finance.Transaction{}, err
	}
	s.publishApproved(tx)
	return tx, nil
}

// Reject closes the transaction without posting. Correction of an approved
// transaction is never a reject; it is a new offsetting journal transaction.
func (s *service) Reject(ctx context.Context, id uuid.UUID, actor string) (finance.Transaction, error) {
	if id == uuid.Nil {
		return finance.Transaction{}, errs.ErrInvalid
	}
	if strings.TrimSpace(actor) == "" {
		return finance.Transaction{}, fmt.Errorf("%w: approver is required", errs.ErrInvalid)
	}
	return s.writer.TransitionStatus(ctx, id,
		[]finance.TransactionStatus{finance.StatusDraft, finance.StatusPending},
		finance.StatusRejected, actor, time.Now().UTC())
}

// publishApproved emits the approval event without blocking the caller.
// A publish failure is logged; the approval itself already succeeded.
func (s *service) publishApproved(tx finance.Transaction) {
	evt := events.TransactionApproved{
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Date:          tx.Date,
		Currency:      tx.Currency,
		TotalMinor:    tx.TotalMinor(),
		ApprovedBy:    tx.ActionedBy,
		ApprovedAt:    tx.ActionedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, events.TopicTransactionApproved, evt); err != nil && s.log != nil {
			s.log.Error("publish approval event", "transaction_id", tx.ID, "err", err)
		}
	}()
}
