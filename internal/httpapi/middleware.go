package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/meta"
)

type ctxKey string

const ctxKeyPostGroup ctxKey = "validatedPostGroup"
const ctxKeyPostLedger ctxKey = "validatedPostLedger"
const ctxKeyListLedgers ctxKey = "validatedListLedgers"
const ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
const ctxKeyListTransactions ctxKey = "validatedListTransactions"

// validatePostGroup parses POST /finance/account-groups and stores the domain
// struct in the request context for the handler.
func (s *Server) validatePostGroup() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postGroupRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if !req.Type.Valid() {
				writeErr(w, http.StatusBadRequest, "invalid group type", "invalid_type")
				return
			}
			g := finance.AccountGroup{Name: req.Name, Type: req.Type, Description: req.Description}
			ctx := context.WithValue(r.Context(), ctxKeyPostGroup, g)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostLedger parses and validates POST /finance/ledgers.
func (s *Server) validatePostLedger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postLedgerRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					badRequest(w, "invalid metadata: "+err.Error())
					return
				}
			}
			l := finance.Ledger{
				GroupID:             req.GroupID,
				Name:                req.Name,
				Currency:            req.Currency,
				OpeningBalanceMinor: req.OpeningBalanceMinor,
				Description:         req.Description,
				CreatedBy:           actorFrom(r),
				Metadata:            meta.New(req.Metadata),
			}
			if err := s.chart.ValidateCreateLedger(l); err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostLedger, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateListLedgers parses query params for GET /finance/ledgers.
func (s *Server) validateListLedgers() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			query := listLedgersQuery{}
			if raw := q.Get("group_id"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					badRequest(w, "invalid group_id")
					return
				}
				query.GroupID = &id
			}
			if raw := q.Get("type"); raw != "" {
				t := finance.GroupType(raw)
				if !t.Valid() {
					writeErr(w, http.StatusBadRequest, "invalid group type", "invalid_type")
					return
				}
				query.Type = &t
			}
			ctx := context.WithValue(r.Context(), ctxKeyListLedgers, query)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostTransaction decodes POST /finance/transactions and runs the
// journal validation before the handler persists anything.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postTransactionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					badRequest(w, "invalid metadata: "+err.Error())
					return
				}
			}
			tx := toTransactionDomain(req, actorFrom(r))
			if err := s.journal.Validate(r.Context(), tx); err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, tx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateListTransactions parses query params for GET /finance/transactions.
func (s *Server) validateListTransactions() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			query := listTransactionsQuery{Limit: 50}
			if raw := q.Get("start_date"); raw != "" {
				t, err := parseDate(raw)
				if err != nil {
					badRequest(w, "invalid start_date")
					return
				}
				query.Filter.From = &t
			}
			if raw := q.Get("end_date"); raw != "" {
				t, err := parseDate(raw)
				if err != nil {
					badRequest(w, "invalid end_date")
					return
				}
				query.Filter.To = &t
			}
			if raw := q.Get("ledger_id"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					badRequest(w, "invalid ledger_id")
					return
				}
				query.Filter.LedgerID = &id
			}
			if raw := q.Get("status"); raw != "" {
				st := finance.TransactionStatus(raw)
				switch st {
				case finance.StatusDraft, finance.StatusPending, finance.StatusApproved, finance.StatusRejected:
					query.Filter.Status = &st
				default:
					badRequest(w, "invalid status")
					return
				}
			}
			if raw := q.Get("type"); raw != "" {
				tt := finance.TransactionType(raw)
				if !tt.Valid() {
					writeErr(w, http.StatusBadRequest, "invalid transaction type", "invalid_type")
					return
				}
				query.Filter.Type = &tt
			}
			if raw := q.Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 || n > 500 {
					badRequest(w, "invalid limit")
					return
				}
				query.Limit = n
			}
			query.Cursor = q.Get("cursor")
			ctx := context.WithValue(r.Context(), ctxKeyListTransactions, query)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseDate accepts RFC3339 timestamps or plain dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func toTransactionDomain(req postTransactionRequest, actor string) finance.Transaction {
	entries := make([]finance.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		amt, _ := money.NewAmountFromMinorUnits(req.Currency, e.AmountMinor)
		entries = append(entries, finance.Entry{
			LedgerID:    e.LedgerID,
			Side:        e.Side,
			Amount:      amt,
			Description: e.Description,
		})
	}
	status := req.Status
	if status == "" {
		status = finance.StatusPending
	}
	tx := finance.Transaction{
		Type:        req.Type,
		Status:      status,
		Currency:    req.Currency,
		Description: req.Description,
		Notes:       req.Notes,
		CreatedBy:   actor,
		Metadata:    meta.New(req.Metadata),
		Entries:     entries,
	}
	if req.Date != nil {
		tx.Date = req.Date.UTC()
	}
	return tx
}
