package memory

import (
	"github.com/storeops/finledger/internal/service/balance"
	"github.com/storeops/finledger/internal/service/inventory"
	"github.com/storeops/finledger/internal/service/journal"
	"github.com/storeops/finledger/internal/service/ledger"
	"github.com/storeops/finledger/internal/service/report"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ ledger.Repo          = (*Store)(nil)
	_ ledger.Writer        = (*Store)(nil)
	_ journal.Repo         = (*Store)(nil)
	_ journal.Writer       = (*Store)(nil)
	_ balance.Repo         = (*Store)(nil)
	_ report.Repo          = (*Store)(nil)
	_ inventory.LedgerRepo = (*Store)(nil)
)
