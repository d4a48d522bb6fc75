package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
)

func seedChart(t *testing.T, s *Store) (cash, sales finance.Ledger) {
	t.Helper()
	assets := finance.AccountGroup{ID: uuid.New(), Name: "Current Assets", Type: finance.GroupTypeAsset, Active: true}
	income := finance.AccountGroup{ID: uuid.New(), Name: "Sales Revenue", Type: finance.GroupTypeIncome, Active: true}
	s.SeedGroup(assets)
	s.SeedGroup(income)
	cash = finance.Ledger{ID: uuid.New(), GroupID: assets.ID, Name: "Cash", Code: "cash", Currency: "INR", Active: true}
	sales = finance.Ledger{ID: uuid.New(), GroupID: income.ID, Name: "Sales", Code: "sales", Currency: "INR", Active: true}
	s.SeedLedger(cash)
	s.SeedLedger(sales)
	return cash, sales
}

func newTx(t *testing.T, date time.Time, cash, sales finance.Ledger, minor int64) finance.Transaction {
	t.Helper()
	amt, err := money.NewAmountFromMinorUnits("INR", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	id := uuid.New()
	return finance.Transaction{
		ID:       id,
		Date:     date,
		Type:     finance.TransactionTypeSales,
		Status:   finance.StatusPending,
		Currency: "INR",
		Entries: []finance.Entry{
			{ID: uuid.New(), TransactionID: id, LedgerID: cash.ID, Side: finance.SideDebit, Amount: amt},
			{ID: uuid.New(), TransactionID: id, LedgerID: sales.ID, Side: finance.SideCredit, Amount: amt},
		},
	}
}

func TestListTransactions_DateThenSeqOrder(t *testing.T) {
	s := New()
	cash, sales := seedChart(t, s)
	ctx := context.Background()

	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	var wantOrder []uuid.UUID
	// Insert out of date order; same-date transactions keep insertion order.
	late, err := s.CreateTransaction(ctx, newTx(t, day.AddDate(0, 0, 1), cash, sales, 300))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		tx, err := s.CreateTransaction(ctx, newTx(t, day, cash, sales, int64(100+i)))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		wantOrder = append(wantOrder, tx.ID)
	}
	wantOrder = append(wantOrder, late.ID)

	got, err := s.ListTransactions(ctx, finance.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d transactions, got %d", len(wantOrder), len(got))
	}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestTransitionStatus_ConcurrentApproversSingleWinner(t *testing.T) {
	s := New()
	cash, sales := seedChart(t, s)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, newTx(t, time.Now().UTC(), cash, sales, 1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	from := []finance.TransactionStatus{finance.StatusDraft, finance.StatusPending}
	const n = 8
	var wg sync.WaitGroup
	errsCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TransitionStatus(ctx, tx.ID, from, finance.StatusApproved, "race", time.Now().UTC())
			errsCh <- err
		}()
	}
	wg.Wait()
	close(errsCh)

	var wins, terminal int
	for err := range errsCh {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errs.ErrAlreadyTerminal):
			terminal++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || terminal != n-1 {
		t.Fatalf("expected exactly one winner, got wins=%d terminal=%d", wins, terminal)
	}

	got, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != finance.StatusApproved || got.ActionedAt == nil {
		t.Fatalf("unexpected final state: %+v", got)
	}
}

func TestTransitionStatus_NotFound(t *testing.T) {
	s := New()
	_, err := s.TransitionStatus(context.Background(), uuid.New(),
		[]finance.TransactionStatus{finance.StatusPending}, finance.StatusApproved, "x", time.Now().UTC())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClone_CallerCannotMutateStoredTransaction(t *testing.T) {
	s := New()
	cash, sales := seedChart(t, s)
	ctx := context.Background()

	created, err := s.CreateTransaction(ctx, newTx(t, time.Now().UTC(), cash, sales, 500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created.Entries[0].LedgerID = uuid.New()
	created.Description = "mutated"

	got, err := s.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Entries[0].LedgerID != cash.ID || got.Description == "mutated" {
		t.Fatalf("stored transaction was mutated through a returned copy")
	}
}

func TestIdempotencyKey_SetIfAbsent(t *testing.T) {
	s := New()
	cash, sales := seedChart(t, s)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, newTx(t, time.Now().UTC(), cash, sales, 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SaveIdempotencyKey(ctx, "k1", tx.ID, "hash-a"); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving again keeps the first binding and its body hash.
	other, err := s.CreateTransaction(ctx, newTx(t, time.Now().UTC(), cash, sales, 200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SaveIdempotencyKey(ctx, "k1", other.ID, "hash-b"); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, hash, ok, err := s.GetTransactionByIdempotencyKey(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if got.ID != tx.ID || hash != "hash-a" {
		t.Fatalf("expected first binding %s/hash-a, got %s/%s", tx.ID, got.ID, hash)
	}
	if _, _, ok, _ := s.GetTransactionByIdempotencyKey(ctx, "missing"); ok {
		t.Fatalf("unexpected hit for unknown key")
	}
}
