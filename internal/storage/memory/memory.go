package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing
// the Postgres store to be plugged in for real deployments.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
)

// txKey tracks ordering of transactions: sorted asc by (Date, Seq).
type txKey struct {
	Date time.Time
	Seq  uint64
	ID   uuid.UUID
}

// Store is an in-memory implementation of the repository+writer interfaces
// used by the services. It is guarded by an RWMutex; status transitions hold
// the write lock across the check-and-set so concurrent approvers cannot
// both win.
type Store struct {
	mu      sync.RWMutex
	groups  map[uuid.UUID]finance.AccountGroup
	ledgers map[uuid.UUID]finance.Ledger
	txs     map[uuid.UUID]*finance.Transaction
	// Sorted index of transactions for ordered scans.
	txKeys []txKey
	// Monotonic insertion order, the same-date tiebreaker.
	seq uint64
	// Idempotency: key -> first transaction and the hash of its request body.
	txIdem map[string]idemRecord
}

type idemRecord struct {
	TxID     uuid.UUID
	BodyHash string
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		groups:  make(map[uuid.UUID]finance.AccountGroup),
		ledgers: make(map[uuid.UUID]finance.Ledger),
		txs:     make(map[uuid.UUID]*finance.Transaction),
		txIdem:  make(map[string]idemRecord),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedGroup(g finance.AccountGroup) { s.mu.Lock(); s.groups[g.ID] = g; s.mu.Unlock() }
func (s *Store) SeedLedger(l finance.Ledger)      { s.mu.Lock(); s.ledgers[l.ID] = l; s.mu.Unlock() }

func (s *Store) Reset() {
	s.mu.Lock()
	s.groups = map[uuid.UUID]finance.AccountGroup{}
	s.ledgers = map[uuid.UUID]finance.Ledger{}
	s.txs = map[uuid.UUID]*finance.Transaction{}
	s.txKeys = nil
	s.seq = 0
	s.txIdem = map[string]idemRecord{}
	s.mu.Unlock()
}

// Ready always succeeds for the in-memory store.
func (s *Store) Ready(_ context.Context) error { return nil }

// --- Groups ---

func (s *Store) CreateGroup(_ context.Context, g finance.AccountGroup) (finance.AccountGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) UpdateGroup(_ context.Context, g finance.AccountGroup) (finance.AccountGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; !ok {
		return finance.AccountGroup{}, errs.ErrNotFound
	}
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id uuid.UUID) (finance.AccountGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return finance.AccountGroup{}, errs.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGroups(_ context.Context) ([]finance.AccountGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.AccountGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type == out[j].Type {
			return out[i].Name < out[j].Name
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// --- Ledgers ---

func (s *Store) CreateLedger(_ context.Context, l finance.Ledger) (finance.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	s.ledgers[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLedger(_ context.Context, l finance.Ledger) (finance.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[l.ID]; !ok {
		return finance.Ledger{}, errs.ErrNotFound
	}
	s.ledgers[l.ID] = l
	return l, nil
}

func (s *Store) GetLedger(_ context.Context, id uuid.UUID) (finance.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[id]
	if !ok {
		return finance.Ledger{}, errs.ErrNotFound
	}
	return l, nil
}

func (s *Store) ListLedgers(_ context.Context) ([]finance.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Ledger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) LedgersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]finance.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]finance.Ledger, len(ids))
	for _, id := range ids {
		if l, ok := s.ledgers[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

// --- Transactions ---

// CreateTransaction stores the header and entries as one unit under the
// write lock and assigns the insertion sequence.
func (s *Store) CreateTransaction(_ context.Context, tx finance.Transaction) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	tx.Seq = s.seq
	cp := cloneTx(tx)
	s.txs[tx.ID] = &cp
	s.insertTxIndexLocked(txKey{Date: tx.Date, Seq: tx.Seq, ID: tx.ID})
	return cloneTx(cp), nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return cloneTx(*tx), nil
}

// ListTransactions returns matching transactions in (date, insertion) order.
func (s *Store) ListTransactions(_ context.Context, f finance.TransactionFilter) ([]finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Transaction, 0)
	for _, k := range s.txKeys {
		tx, ok := s.txs[k.ID]
		if !ok {
			continue
		}
		if !f.Matches(*tx) {
			continue
		}
		out = append(out, cloneTx(*tx))
	}
	return out, nil
}

// TransitionStatus applies the status guard and the update atomically under
// the write lock.
func (s *Store) TransitionStatus(_ context.Context, id uuid.UUID, from []finance.TransactionStatus, to finance.TransactionStatus, actor string, at time.Time) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return finance.Transaction{}, errs.ErrNotFound
	}
	allowed := false
	for _, st := range from {
		if tx.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return finance.Transaction{}, errs.ErrAlreadyTerminal
	}
	tx.Status = to
	tx.ActionedBy = actor
	t := at
	tx.ActionedAt = &t
	return cloneTx(*tx), nil
}

// --- Idempotency ---

func (s *Store) GetTransactionByIdempotencyKey(_ context.Context, key string) (finance.Transaction, string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.txIdem[key]; ok {
		if tx, ok2 := s.txs[rec.TxID]; ok2 {
			return cloneTx(*tx), rec.BodyHash, true, nil
		}
	}
	return finance.Transaction{}, "", false, nil
}

func (s *Store) SaveIdempotencyKey(_ context.Context, key string, txID uuid.UUID, bodyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Only set if absent to preserve idempotency
	if _, exists := s.txIdem[key]; !exists {
		s.txIdem[key] = idemRecord{TxID: txID, BodyHash: bodyHash}
	}
	return nil
}

// insertTxIndexLocked inserts k into the sorted index, keeping order asc by
// (Date, Seq). Caller must hold s.mu (write lock).
func (s *Store) insertTxIndexLocked(k txKey) {
	keys := s.txKeys
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].Date.After(k.Date) {
			return true
		}
		if keys[i].Date.Equal(k.Date) {
			return keys[i].Seq > k.Seq
		}
		return false
	})
	if i == len(keys) {
		s.txKeys = append(keys, k)
		return
	}
	keys = append(keys, txKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.txKeys = keys
}

// cloneTx copies the transaction with its entry slice so callers never share
// backing storage with the store.
func cloneTx(tx finance.Transaction) finance.Transaction {
	entries := make([]finance.Entry, len(tx.Entries))
	copy(entries, tx.Entries)
	tx.Entries = entries
	if tx.ActionedAt != nil {
		t := *tx.ActionedAt
		tx.ActionedAt = &t
	}
	tx.Metadata = tx.Metadata.Clone()
	return tx
}
