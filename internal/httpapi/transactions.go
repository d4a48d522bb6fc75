package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
)

// postTransaction handles POST /finance/transactions. The validation
// middleware has already checked balance, ledgers and currency; this handler
// only honors Idempotency-Key replay and persists.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := r.Context().Value(ctxKeyPostTransaction).(finance.Transaction)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var bodyHash string
	if key != "" {
		bodyHash = idempotencyHash(tx)
		if prior, priorHash, found, err := s.idem.GetTransactionByIdempotencyKey(r.Context(), key); err == nil && found {
			if priorHash != bodyHash {
				writeErr(w, http.StatusConflict, "Idempotency-Key was already used with a different body", "idempotency_mismatch")
				return
			}
			respond(w, http.StatusOK, toTransactionResponse(prior))
			return
		}
	}
	created, err := s.journal.Create(r.Context(), tx)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if key != "" {
		if err := s.idem.SaveIdempotencyKey(r.Context(), key, created.ID, bodyHash); err != nil {
			s.log.Error("save idempotency key", "key", key, "err", err)
		}
	}
	respond(w, http.StatusCreated, toTransactionResponse(created))
}

// listTransactions handles GET /finance/transactions with cursor pagination.
// The cursor encodes (date, seq) of the last returned row.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q, _ := r.Context().Value(ctxKeyListTransactions).(listTransactionsQuery)
	txs, err := s.journal.List(r.Context(), q.Filter)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	start := 0
	if q.Cursor != "" {
		if ts, seq, ok := decodeCursor(q.Cursor); ok {
			for i := range txs {
				if txs[i].Date.After(ts) {
					break
				}
				if txs[i].Date.Equal(ts) && txs[i].Seq == seq {
					start = i + 1
					break
				}
			}
		}
	}
	end := start + q.Limit
	if end > len(txs) {
		end = len(txs)
	}
	page := txs[start:end]

	resp := listTransactionsResponse{Items: make([]transactionResponse, 0, len(page))}
	for _, tx := range page {
		resp.Items = append(resp.Items, toTransactionResponse(tx))
	}
	if end < len(txs) {
		last := page[len(page)-1]
		c := encodeCursor(last.Date, last.Seq)
		resp.NextCursor = &c
	}
	respond(w, http.StatusOK, resp)
}

// getTransaction handles GET /finance/transactions/{id}.
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	tx, err := s.journal.Get(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, toTransactionResponse(tx))
}

// approveTransaction handles PATCH /finance/transactions/{id}/approve.
// A terminal transaction yields 409; approval is recorded with the actor.
func (s *Server) approveTransaction(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.journal.Approve)
}

// rejectTransaction handles PATCH /finance/transactions/{id}/reject.
func (s *Server) rejectTransaction(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.journal.Reject)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, do func(ctx context.Context, id uuid.UUID, actor string) (finance.Transaction, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actor := actorFrom(r)
	if actor == "" {
		badRequest(w, "actor is required (JWT subject or X-Actor header)")
		return
	}
	tx, err := do(r.Context(), id, actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, toTransactionResponse(tx))
}

func encodeCursor(date time.Time, seq uint64) string {
	return base64.StdEncoding.EncodeToString([]byte(date.Format(time.RFC3339Nano) + "|" + strconv.FormatUint(seq, 10)))
}

func decodeCursor(cursor string) (time.Time, uint64, bool) {
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, false
	}
	parts := strings.Split(string(b), "|")
	if len(parts) != 2 {
		return time.Time{}, 0, false
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, 0, false
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return ts, seq, true
}

func toTransactionResponse(tx finance.Transaction) transactionResponse {
	entries := make([]entryResponse, 0, len(tx.Entries))
	for _, e := range tx.Entries {
		m, _ := e.Amount.MinorUnits()
		entries = append(entries, entryResponse{
			ID:          e.ID,
			LedgerID:    e.LedgerID,
			Side:        e.Side,
			AmountMinor: m,
			Description: e.Description,
		})
	}
	return transactionResponse{
		ID:          tx.ID,
		Date:        tx.Date,
		Type:        tx.Type,
		Status:      tx.Status,
		Currency:    tx.Currency,
		Description: tx.Description,
		Notes:       tx.Notes,
		CreatedBy:   tx.CreatedBy,
		ActionedBy:  tx.ActionedBy,
		ActionedAt:  tx.ActionedAt,
		TotalMinor:  tx.TotalMinor(),
		Metadata:    map[string]string(tx.Metadata),
		Entries:     entries,
	}
}
