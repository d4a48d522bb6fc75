// Package inventory reconciles catalog-derived stock value against the
// Inventory ledger. The reconciler is read-only on the books: a variance is
// reported for a human to resolve with an adjusting journal transaction,
// never posted automatically.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/storeops/finledger/internal/catalog"
	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/service/balance"
)

type LedgerRepo interface {
	ListLedgers(ctx context.Context) ([]finance.Ledger, error)
}

type Service interface {
	Reconcile(ctx context.Context) (finance.InventorySnapshot, error)
}

type service struct {
	source   catalog.Source
	ledgers  LedgerRepo
	balances balance.Service
	// ledgerName selects the inventory ledger by case-insensitive substring
	// match against ledger names.
	ledgerName string
	timeout    time.Duration
	log        *slog.Logger
}

func New(source catalog.Source, ledgers LedgerRepo, balances balance.Service, ledgerName string, timeout time.Duration, log *slog.Logger) Service {
	if ledgerName == "" {
		ledgerName = "inventory"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &service{source: source, ledgers: ledgers, balances: balances, ledgerName: ledgerName, timeout: timeout, log: log}
}

func (s *service) Reconcile(ctx context.Context) (finance.InventorySnapshot, error) {
	now := time.Now().UTC()

	led, err := s.inventoryLedger(ctx)
	if err != nil {
		return finance.InventorySnapshot{CalculatedAt: now}, err
	}
	bal, err := s.balances.LedgerBalance(ctx, led.ID, nil)
	if err != nil {
		return finance.InventorySnapshot{CalculatedAt: now}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	variants, err := s.source.Variants(fetchCtx)
	if err != nil {
		// Stale numbers must never be presented as fresh: surface the failure.
		if s.log != nil {
			s.log.Error("catalog fetch failed", "err", err)
		}
		snap := finance.InventorySnapshot{
			Currency:           led.Currency,
			LedgerBalanceMinor: bal.BalanceMinor,
			CalculatedAt:       now,
			Items:              []finance.InventoryItem{},
			Error:              err.Error(),
		}
		return snap, fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}

	snap := finance.InventorySnapshot{
		Currency:           led.Currency,
		LedgerBalanceMinor: bal.BalanceMinor,
		CalculatedAt:       now,
		Items:              make([]finance.InventoryItem, 0, len(variants)),
	}
	for _, v := range variants {
		value := v.CostMinor * v.Quantity
		snap.TotalInventoryValueMinor += value
		snap.TotalQuantity += v.Quantity
		snap.Items = append(snap.Items, finance.InventoryItem{
			ProductID:        v.ProductID,
			Title:            v.Title,
			SKU:              v.SKU,
			CostPerItemMinor: v.CostMinor,
			Quantity:         v.Quantity,
			TotalValueMinor:  value,
		})
	}
	snap.TotalItems = len(snap.Items)
	if snap.TotalQuantity > 0 {
		snap.AverageCostMinor = snap.TotalInventoryValueMinor / snap.TotalQuantity
	}
	snap.VarianceMinor = snap.TotalInventoryValueMinor - snap.LedgerBalanceMinor
	sort.SliceStable(snap.Items, func(i, j int) bool {
		return snap.Items[i].TotalValueMinor > snap.Items[j].TotalValueMinor
	})
	return snap, nil
}

func (s *service) inventoryLedger(ctx context.Context) (finance.Ledger, error) {
	ledgers, err := s.ledgers.ListLedgers(ctx)
	if err != nil {
		return finance.Ledger{}, err
	}
	needle := strings.ToLower(s.ledgerName)
	for _, l := range ledgers {
		if l.Active && strings.Contains(strings.ToLower(l.Name), needle) {
			return l, nil
		}
	}
	return finance.Ledger{}, fmt.Errorf("%w: no ledger matching %q", errs.ErrNotFound, s.ledgerName)
}
