package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/service/report"
)

// dayBook handles GET /finance/reports/daybook?start_date&end_date&type&ledger_id.
func (s *Server) dayBook(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.window(w, r)
	if !ok {
		return
	}
	q := report.DayBookQuery{From: from, To: to}
	if raw := r.URL.Query().Get("type"); raw != "" {
		tt := finance.TransactionType(raw)
		if !tt.Valid() {
			writeErr(w, http.StatusBadRequest, "invalid transaction type", "invalid_type")
			return
		}
		q.Type = &tt
	}
	if raw := r.URL.Query().Get("ledger_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid ledger_id")
			return
		}
		q.LedgerID = &id
	}
	book, err := s.reports.DayBook(r.Context(), q)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, book)
}

// ledgerStatement handles GET /finance/reports/ledger?ledger_id&start_date&end_date.
func (s *Server) ledgerStatement(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ledger_id")
	if raw == "" {
		badRequest(w, "ledger_id is required")
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid ledger_id")
		return
	}
	from, to, ok := s.window(w, r)
	if !ok {
		return
	}
	st, err := s.reports.LedgerStatement(r.Context(), id, from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

// trialBalance handles GET /finance/trial-balance?as_of_date.
func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := s.asOf(w, r)
	if !ok {
		return
	}
	tb, err := s.reports.TrialBalance(r.Context(), asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, tb)
}

// profitLoss handles GET /finance/reports/profit-loss?start_date&end_date.
func (s *Server) profitLoss(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.window(w, r)
	if !ok {
		return
	}
	pl, err := s.reports.ProfitLoss(r.Context(), from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, pl)
}

// balanceSheet handles GET /finance/reports/balance-sheet?as_of_date.
func (s *Server) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := s.asOf(w, r)
	if !ok {
		return
	}
	bs, err := s.reports.BalanceSheet(r.Context(), asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, bs)
}

// window parses start_date/end_date; the window defaults to the current
// month when absent.
func (s *Server) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now
	var err error
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		if from, err = parseDate(raw); err != nil {
			badRequest(w, "invalid start_date")
			return time.Time{}, time.Time{}, false
		}
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		if to, err = parseDate(raw); err != nil {
			badRequest(w, "invalid end_date")
			return time.Time{}, time.Time{}, false
		}
		// A plain date means the whole day inclusive.
		if to.Hour() == 0 && to.Minute() == 0 && to.Second() == 0 {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if to.Before(from) {
		badRequest(w, "end_date before start_date")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// asOf parses as_of_date, defaulting to now.
func (s *Server) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of_date"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			badRequest(w, "invalid as_of_date")
			return time.Time{}, false
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		asOf = t
	}
	return asOf, true
}
