package balance_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/require"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/service/balance"
	"github.com/storeops/finledger/internal/storage/memory"
)

type world struct {
	store *memory.Store
	svc   balance.Service
	cash  finance.Ledger
	loan  finance.Ledger
	sales finance.Ledger
}

func newWorld(t *testing.T) world {
	t.Helper()
	store := memory.New()
	assets := finance.AccountGroup{ID: uuid.New(), Name: "Current Assets", Type: finance.GroupTypeAsset, Active: true}
	liab := finance.AccountGroup{ID: uuid.New(), Name: "Loans", Type: finance.GroupTypeLiability, Active: true}
	income := finance.AccountGroup{ID: uuid.New(), Name: "Sales Revenue", Type: finance.GroupTypeIncome, Active: true}
	store.SeedGroup(assets)
	store.SeedGroup(liab)
	store.SeedGroup(income)

	w := world{
		store: store,
		svc:   balance.New(store),
		cash:  finance.Ledger{ID: uuid.New(), GroupID: assets.ID, Name: "Cash", Code: "cash", Currency: "INR", OpeningBalanceMinor: 10000, Active: true},
		loan:  finance.Ledger{ID: uuid.New(), GroupID: liab.ID, Name: "Bank Loan", Code: "bank_loan", Currency: "INR", Active: true},
		sales: finance.Ledger{ID: uuid.New(), GroupID: income.ID, Name: "Sales", Code: "sales", Currency: "INR", Active: true},
	}
	store.SeedLedger(w.cash)
	store.SeedLedger(w.loan)
	store.SeedLedger(w.sales)
	return w
}

func (w world) post(t *testing.T, date time.Time, status finance.TransactionStatus, debit, credit uuid.UUID, minor int64) {
	t.Helper()
	amount, err := money.NewAmountFromMinorUnits("INR", minor)
	require.NoError(t, err)
	txID := uuid.New()
	_, err = w.store.CreateTransaction(context.Background(), finance.Transaction{
		ID:       txID,
		Date:     date,
		Type:     finance.TransactionTypeJournal,
		Status:   status,
		Currency: "INR",
		Entries: []finance.Entry{
			{ID: uuid.New(), TransactionID: txID, LedgerID: debit, Side: finance.SideDebit, Amount: amount},
			{ID: uuid.New(), TransactionID: txID, LedgerID: credit, Side: finance.SideCredit, Amount: amount},
		},
	})
	require.NoError(t, err)
}

func day(d int) time.Time {
	return time.Date(2026, 5, d, 12, 0, 0, 0, time.UTC)
}

func TestLedgerBalance_NormalBalanceSigning(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	// Loan drawdown: cash up, loan up.
	w.post(t, day(1), finance.StatusApproved, w.cash.ID, w.loan.ID, 50000)
	// Sale: cash up, income up.
	w.post(t, day(2), finance.StatusApproved, w.cash.ID, w.sales.ID, 20000)
	// Loan repayment: loan down, cash down.
	w.post(t, day(3), finance.StatusApproved, w.loan.ID, w.cash.ID, 30000)

	cash, err := w.svc.LedgerBalance(ctx, w.cash.ID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(10000+50000+20000-30000), cash.BalanceMinor)
	require.Equal(t, "INR", cash.Currency)

	// Credit-normal ledgers grow on credits and shrink on debits.
	loan, err := w.svc.LedgerBalance(ctx, w.loan.ID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(50000-30000), loan.BalanceMinor)

	sales, err := w.svc.LedgerBalance(ctx, w.sales.ID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(20000), sales.BalanceMinor)
}

func TestLedgerBalance_AsOfAndStatus(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.post(t, day(1), finance.StatusApproved, w.cash.ID, w.sales.ID, 5000)
	w.post(t, day(5), finance.StatusApproved, w.cash.ID, w.sales.ID, 7000)
	w.post(t, day(5), finance.StatusPending, w.cash.ID, w.sales.ID, 99999)
	w.post(t, day(5), finance.StatusRejected, w.cash.ID, w.sales.ID, 88888)

	asOf := day(3)
	got, err := w.svc.LedgerBalance(ctx, w.cash.ID, &asOf)
	require.NoError(t, err)
	require.Equal(t, int64(15000), got.BalanceMinor)
	require.NotNil(t, got.AsOf)

	// Full history still only counts approved activity.
	got, err = w.svc.LedgerBalance(ctx, w.cash.ID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(22000), got.BalanceMinor)

	_, err = w.svc.LedgerBalance(ctx, uuid.New(), nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = w.svc.LedgerBalance(ctx, uuid.Nil, nil)
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestRunningBalance_WindowAndOrder(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.post(t, day(1), finance.StatusApproved, w.cash.ID, w.sales.ID, 5000)
	w.post(t, day(2), finance.StatusApproved, w.sales.ID, w.cash.ID, 1000) // refund
	w.post(t, day(4), finance.StatusApproved, w.cash.ID, w.sales.ID, 3000)

	from := day(2)
	opening, entries, err := w.svc.RunningBalance(ctx, w.cash.ID, &from, nil)
	require.NoError(t, err)
	// Day 1 folds into the opening: 10000 + 5000.
	require.Equal(t, int64(15000), opening)
	require.Len(t, entries, 2)
	require.Equal(t, int64(14000), entries[0].RunningBalanceMinor)
	require.Equal(t, int64(17000), entries[1].RunningBalanceMinor)
	require.Equal(t, finance.SideCredit, entries[0].Side)
	require.Equal(t, finance.SideDebit, entries[1].Side)
}

func TestActivityTotals(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.post(t, day(1), finance.StatusApproved, w.cash.ID, w.sales.ID, 5000)
	w.post(t, day(2), finance.StatusApproved, w.sales.ID, w.cash.ID, 1000)
	w.post(t, day(9), finance.StatusApproved, w.cash.ID, w.sales.ID, 4000)

	from, to := day(1), day(3)
	debit, credit, err := w.svc.ActivityTotals(ctx, w.cash.ID, &from, &to)
	require.NoError(t, err)
	require.Equal(t, int64(5000), debit)
	require.Equal(t, int64(1000), credit)
}
