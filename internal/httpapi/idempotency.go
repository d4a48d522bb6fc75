package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/meta"
)

// idempotencyHash fingerprints the validated transaction so a reused
// Idempotency-Key with a different body is detected instead of silently
// replayed. The normalized form is independent of map iteration and entry
// identifiers.
func idempotencyHash(tx finance.Transaction) string {
	type normEntry struct {
		LedgerID    string `json:"ledger_id"`
		Side        string `json:"side"`
		AmountMinor int64  `json:"amount_minor"`
		Description string `json:"description"`
	}
	type normTx struct {
		Date        string        `json:"date"`
		Type        string        `json:"type"`
		Status      string        `json:"status"`
		Currency    string        `json:"currency"`
		Description string        `json:"description"`
		Notes       string        `json:"notes"`
		Metadata    meta.Metadata `json:"metadata"`
		Entries     []normEntry   `json:"entries"`
	}
	n := normTx{
		Date:        tx.Date.UTC().Format(time.RFC3339Nano),
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		Currency:    tx.Currency,
		Description: tx.Description,
		Notes:       tx.Notes,
		Metadata:    meta.New(tx.Metadata),
		Entries:     make([]normEntry, 0, len(tx.Entries)),
	}
	for _, e := range tx.Entries {
		m, _ := e.Amount.MinorUnits()
		n.Entries = append(n.Entries, normEntry{
			LedgerID:    e.LedgerID.String(),
			Side:        string(e.Side),
			AmountMinor: m,
			Description: e.Description,
		})
	}
	b, _ := json.Marshal(n)
	return hashBytes(b)
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
