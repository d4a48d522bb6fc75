// Package report builds the financial reports from one consistent snapshot
// of the chart and the approved journal. Reports are pure reads: a detected
// imbalance is surfaced and alerted, never corrected.
package report

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/dictionary"
	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/slug"
)

type Repo interface {
	ListGroups(ctx context.Context) ([]finance.AccountGroup, error)
	ListLedgers(ctx context.Context) ([]finance.Ledger, error)
	ListTransactions(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error)
	GetLedger(ctx context.Context, id uuid.UUID) (finance.Ledger, error)
}

// DayBookQuery narrows the day book to a window and optional type/ledger.
type DayBookQuery struct {
	From     time.Time
	To       time.Time
	Type     *finance.TransactionType
	LedgerID *uuid.UUID
}

type Service interface {
	DayBook(ctx context.Context, q DayBookQuery) (DayBook, error)
	LedgerStatement(ctx context.Context, ledgerID uuid.UUID, from, to time.Time) (LedgerStatement, error)
	TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error)
	ProfitLoss(ctx context.Context, from, to time.Time) (ProfitLoss, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error)
}

type service struct {
	repo Repo
	log  *slog.Logger
}

func New(repo Repo, log *slog.Logger) Service { return &service{repo: repo, log: log} }

// snapshot is one consistent read of the chart plus the approved journal up
// to a point in time, in (date, insertion) order.
type snapshot struct {
	groups  map[uuid.UUID]finance.AccountGroup
	ledgers []finance.Ledger
	byID    map[uuid.UUID]finance.Ledger
	txs     []finance.Transaction
}

func (s *service) load(ctx context.Context, to *time.Time) (snapshot, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return snapshot{}, err
	}
	ledgers, err := s.repo.ListLedgers(ctx)
	if err != nil {
		return snapshot{}, err
	}
	approved := finance.StatusApproved
	txs, err := s.repo.ListTransactions(ctx, finance.TransactionFilter{To: to, Status: &approved})
	if err != nil {
		return snapshot{}, err
	}
	sort.Slice(ledgers, func(i, j int) bool { return ledgers[i].Code < ledgers[j].Code })
	snap := snapshot{
		groups:  make(map[uuid.UUID]finance.AccountGroup, len(groups)),
		ledgers: ledgers,
		byID:    make(map[uuid.UUID]finance.Ledger, len(ledgers)),
		txs:     txs,
	}
	for _, g := range groups {
		snap.groups[g.ID] = g
	}
	for _, l := range ledgers {
		snap.byID[l.ID] = l
	}
	return snap, nil
}

func (snap snapshot) groupType(ledgerID uuid.UUID) (finance.GroupType, bool) {
	l, ok := snap.byID[ledgerID]
	if !ok {
		return "", false
	}
	g, ok := snap.groups[l.GroupID]
	if !ok {
		return "", false
	}
	return g.Type, true
}

func (s *service) DayBook(ctx context.Context, q DayBookQuery) (DayBook, error) {
	snap, err := s.load(ctx, &q.To)
	if err != nil {
		return DayBook{}, err
	}
	// Balance of every ledger just before the window opens.
	pre := make(map[uuid.UUID]int64, len(snap.ledgers))
	for _, l := range snap.ledgers {
		pre[l.ID] = l.OpeningBalanceMinor
	}
	for _, tx := range snap.txs {
		if !tx.Date.Before(q.From) {
			continue
		}
		for _, e := range tx.Entries {
			gt, ok := snap.groupType(e.LedgerID)
			if !ok {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			pre[e.LedgerID] += gt.SignedDelta(e.Side, m)
		}
	}

	run := make(map[uuid.UUID]int64, len(pre))
	involved := make(map[uuid.UUID]struct{})
	book := DayBook{From: q.From, To: q.To, Rows: make([]DayBookRow, 0)}
	for _, tx := range snap.txs {
		if tx.Date.Before(q.From) {
			continue
		}
		if q.Type != nil && tx.Type != *q.Type {
			continue
		}
		for _, e := range tx.Entries {
			if q.LedgerID != nil && e.LedgerID != *q.LedgerID {
				continue
			}
			led, ok := snap.byID[e.LedgerID]
			if !ok {
				continue
			}
			gt, _ := snap.groupType(e.LedgerID)
			if _, seen := involved[e.LedgerID]; !seen {
				involved[e.LedgerID] = struct{}{}
				run[e.LedgerID] = pre[e.LedgerID]
				if book.Currency == "" {
					book.Currency = led.Currency
				}
			}
			m, _ := e.Amount.MinorUnits()
			run[e.LedgerID] += gt.SignedDelta(e.Side, m)
			if e.Side == finance.SideDebit {
				book.TotalDebitMinor += m
			} else {
				book.TotalCreditMinor += m
			}
			book.Rows = append(book.Rows, DayBookRow{
				Date:                tx.Date,
				TransactionID:       tx.ID,
				Type:                tx.Type,
				Description:         pickDescription(e.Description, tx.Description),
				LedgerID:            e.LedgerID,
				LedgerName:          led.Name,
				Side:                e.Side,
				AmountMinor:         m,
				RunningBalanceMinor: run[e.LedgerID],
			})
		}
	}
	for id := range involved {
		book.OpeningBalanceMinor += pre[id]
		book.ClosingBalanceMinor += run[id]
	}
	return book, nil
}

func (s *service) LedgerStatement(ctx context.Context, ledgerID uuid.UUID, from, to time.Time) (LedgerStatement, error) {
	if ledgerID == uuid.Nil {
		return LedgerStatement{}, errs.ErrInvalid
	}
	if _, err := s.repo.GetLedger(ctx, ledgerID); err != nil {
		return LedgerStatement{}, err
	}
	snap, err := s.load(ctx, &to)
	if err != nil {
		return LedgerStatement{}, err
	}
	led := snap.byID[ledgerID]
	gt, ok := snap.groupType(ledgerID)
	if !ok {
		return LedgerStatement{}, errs.ErrNotFound
	}
	st := LedgerStatement{
		LedgerID:   ledgerID,
		LedgerName: led.Name,
		Code:       led.Code,
		Currency:   led.Currency,
		From:       from,
		To:         to,
		Rows:       make([]StatementRow, 0),
	}
	opening := led.OpeningBalanceMinor
	run := opening
	for _, tx := range snap.txs {
		inRange := !tx.Date.Before(from)
		for _, e := range tx.Entries {
			if e.LedgerID != ledgerID {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			delta := gt.SignedDelta(e.Side, m)
			if !inRange {
				opening += delta
				run = opening
				continue
			}
			run += delta
			if e.Side == finance.SideDebit {
				st.TotalDebitMinor += m
			} else {
				st.TotalCreditMinor += m
			}
			st.Rows = append(st.Rows, StatementRow{
				Date:                tx.Date,
				TransactionID:       tx.ID,
				Type:                tx.Type,
				Description:         pickDescription(e.Description, tx.Description),
				Side:                e.Side,
				AmountMinor:         m,
				RunningBalanceMinor: run,
			})
		}
	}
	st.OpeningBalanceMinor = opening
	st.ClosingBalanceMinor = run
	return st, nil
}

func (s *service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	snap, err := s.load(ctx, &asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	totals := make(map[uuid.UUID]*TrialBalanceRow, len(snap.ledgers))
	tb := TrialBalance{AsOf: asOf, Rows: make([]TrialBalanceRow, 0, len(snap.ledgers))}
	for _, l := range snap.ledgers {
		if !l.Active {
			continue
		}
		g := snap.groups[l.GroupID]
		totals[l.ID] = &TrialBalanceRow{
			LedgerID:            l.ID,
			LedgerName:          l.Name,
			Code:                l.Code,
			GroupName:           g.Name,
			Type:                g.Type,
			OpeningBalanceMinor: l.OpeningBalanceMinor,
			ClosingBalanceMinor: l.OpeningBalanceMinor,
		}
	}
	for _, tx := range snap.txs {
		for _, e := range tx.Entries {
			row, ok := totals[e.LedgerID]
			if !ok {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			if e.Side == finance.SideDebit {
				row.DebitTotalMinor += m
			} else {
				row.CreditTotalMinor += m
			}
			row.ClosingBalanceMinor += row.Type.SignedDelta(e.Side, m)
		}
	}
	for _, l := range snap.ledgers {
		row, ok := totals[l.ID]
		if !ok {
			continue
		}
		tb.Rows = append(tb.Rows, *row)
		tb.TotalDebitMinor += row.DebitTotalMinor
		tb.TotalCreditMinor += row.CreditTotalMinor
	}
	tb.IsBalanced = tb.TotalDebitMinor == tb.TotalCreditMinor
	if !tb.IsBalanced {
		s.alertImbalance("trial_balance", tb.TotalDebitMinor, tb.TotalCreditMinor)
	}
	return tb, nil
}

func (s *service) ProfitLoss(ctx context.Context, from, to time.Time) (ProfitLoss, error) {
	snap, err := s.load(ctx, &to)
	if err != nil {
		return ProfitLoss{}, err
	}
	// Net activity within the window per income/expense ledger, stated as a
	// positive amount in the type's normal direction.
	activity := make(map[uuid.UUID]int64)
	for _, tx := range snap.txs {
		if tx.Date.Before(from) {
			continue
		}
		for _, e := range tx.Entries {
			gt, ok := snap.groupType(e.LedgerID)
			if !ok || (gt != finance.GroupTypeIncome && gt != finance.GroupTypeExpense) {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			activity[e.LedgerID] += gt.SignedDelta(e.Side, m)
		}
	}

	pl := ProfitLoss{From: from, To: to, Income: make([]ProfitLossGroup, 0), Expenses: make([]ProfitLossGroup, 0)}
	byGroup := make(map[uuid.UUID]*ProfitLossGroup)
	groupOrder := make([]uuid.UUID, 0)
	for _, l := range snap.ledgers {
		amt, ok := activity[l.ID]
		if !ok || amt == 0 {
			continue
		}
		g := snap.groups[l.GroupID]
		pg, ok := byGroup[g.ID]
		if !ok {
			pg = &ProfitLossGroup{GroupID: g.ID, GroupName: g.Name}
			byGroup[g.ID] = pg
			groupOrder = append(groupOrder, g.ID)
		}
		pg.TotalMinor += amt
		pg.Lines = append(pg.Lines, ProfitLossLine{LedgerID: l.ID, LedgerName: l.Name, AmountMinor: amt})
		if g.Type == finance.GroupTypeIncome {
			pl.TotalIncomeMinor += amt
		} else {
			pl.TotalExpenseMinor += amt
			if slug.Slugify(g.Name) == dictionary.CostOfGoodsCode {
				pl.CostOfGoodsMinor += amt
			}
		}
	}
	for _, gid := range groupOrder {
		pg := byGroup[gid]
		g := snap.groups[gid]
		total := pl.TotalIncomeMinor
		if g.Type == finance.GroupTypeExpense {
			total = pl.TotalExpenseMinor
		}
		for i := range pg.Lines {
			pg.Lines[i].Percent = percentOf(pg.Lines[i].AmountMinor, total)
		}
		if g.Type == finance.GroupTypeIncome {
			pl.Income = append(pl.Income, *pg)
		} else {
			pl.Expenses = append(pl.Expenses, *pg)
		}
	}
	pl.NetProfitMinor = pl.TotalIncomeMinor - pl.TotalExpenseMinor
	if pl.TotalIncomeMinor > 0 {
		pl.GrossMarginPercent = percentOf(pl.TotalIncomeMinor-pl.CostOfGoodsMinor, pl.TotalIncomeMinor)
	}
	return pl, nil
}

func (s *service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	snap, err := s.load(ctx, &asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	closing := make(map[uuid.UUID]int64, len(snap.ledgers))
	for _, l := range snap.ledgers {
		closing[l.ID] = l.OpeningBalanceMinor
	}
	for _, tx := range snap.txs {
		for _, e := range tx.Entries {
			gt, ok := snap.groupType(e.LedgerID)
			if !ok {
				continue
			}
			m, _ := e.Amount.MinorUnits()
			closing[e.LedgerID] += gt.SignedDelta(e.Side, m)
		}
	}

	bs := BalanceSheet{
		AsOf:        asOf,
		Assets:      BalanceSheetSection{Lines: make([]BalanceSheetLine, 0)},
		Liabilities: BalanceSheetSection{Lines: make([]BalanceSheetLine, 0)},
		Equity:      BalanceSheetSection{Lines: make([]BalanceSheetLine, 0)},
	}
	var incomeTotal, expenseTotal int64
	for _, l := range snap.ledgers {
		g := snap.groups[l.GroupID]
		bal := closing[l.ID]
		switch g.Type {
		case finance.GroupTypeAsset:
			bs.Assets.Lines = append(bs.Assets.Lines, BalanceSheetLine{LedgerID: l.ID, LedgerName: l.Name, BalanceMinor: bal})
			bs.Assets.TotalMinor += bal
		case finance.GroupTypeLiability:
			bs.Liabilities.Lines = append(bs.Liabilities.Lines, BalanceSheetLine{LedgerID: l.ID, LedgerName: l.Name, BalanceMinor: bal})
			bs.Liabilities.TotalMinor += bal
		case finance.GroupTypeEquity:
			bs.Equity.Lines = append(bs.Equity.Lines, BalanceSheetLine{LedgerID: l.ID, LedgerName: l.Name, BalanceMinor: bal})
			bs.Equity.TotalMinor += bal
		case finance.GroupTypeIncome:
			incomeTotal += bal
		case finance.GroupTypeExpense:
			expenseTotal += bal
		}
	}
	// Activity to date flows into equity as retained earnings so the sheet
	// closes without waiting for a period-end close.
	bs.RetainedEarningsMinor = incomeTotal - expenseTotal
	bs.Equity.Lines = append(bs.Equity.Lines, BalanceSheetLine{LedgerName: "Retained Earnings", BalanceMinor: bs.RetainedEarningsMinor})
	bs.Equity.TotalMinor += bs.RetainedEarningsMinor

	bs.IsBalanced = bs.Assets.TotalMinor == bs.Liabilities.TotalMinor+bs.Equity.TotalMinor
	if !bs.IsBalanced {
		s.alertImbalance("balance_sheet", bs.Assets.TotalMinor, bs.Liabilities.TotalMinor+bs.Equity.TotalMinor)
	}
	return bs, nil
}

func (s *service) alertImbalance(report string, left, right int64) {
	invariantViolations.WithLabelValues(report).Inc()
	if s.log != nil {
		s.log.Error("accounting invariant violated", "report", report, "left_minor", left, "right_minor", right)
	}
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func pickDescription(entry, tx string) string {
	if entry != "" {
		return entry
	}
	return tx
}
