package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/meta"
)

// postLedger handles POST /finance/ledgers.
func (s *Server) postLedger(w http.ResponseWriter, r *http.Request) {
	l, ok := r.Context().Value(ctxKeyPostLedger).(finance.Ledger)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.chart.CreateLedger(r.Context(), l)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusCreated, toLedgerResponse(created, nil))
}

// listLedgers handles GET /finance/ledgers. Each ledger carries its derived
// balance so the dashboard renders the chart in one round trip.
func (s *Server) listLedgers(w http.ResponseWriter, r *http.Request) {
	q, _ := r.Context().Value(ctxKeyListLedgers).(listLedgersQuery)
	ledgers, err := s.chart.ListLedgers(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	groups, err := s.chart.ListGroups(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	typeOf := make(map[uuid.UUID]finance.GroupType, len(groups))
	for _, g := range groups {
		typeOf[g.ID] = g.Type
	}
	out := make([]ledgerResponse, 0, len(ledgers))
	for _, l := range ledgers {
		if q.GroupID != nil && l.GroupID != *q.GroupID {
			continue
		}
		if q.Type != nil && typeOf[l.GroupID] != *q.Type {
			continue
		}
		bal, err := s.balances.LedgerBalance(r.Context(), l.ID, nil)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		out = append(out, toLedgerResponse(l, &bal.BalanceMinor))
	}
	respond(w, http.StatusOK, out)
}

// getLedger handles GET /finance/ledgers/{id}.
func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	l, err := s.chart.GetLedger(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	bal, err := s.balances.LedgerBalance(r.Context(), id, nil)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, toLedgerResponse(l, &bal.BalanceMinor))
}

// patchLedger handles PATCH /finance/ledgers/{id}. Identity fields (group,
// currency, code, opening balance) are immutable.
func (s *Server) patchLedger(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req patchLedgerRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	current, err := s.chart.GetLedger(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	l := current
	if req.Name != nil {
		l.Name = *req.Name
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.Metadata != nil {
		md := meta.New(req.Metadata)
		if err := md.Validate(); err != nil {
			badRequest(w, "invalid metadata: "+err.Error())
			return
		}
		l.Metadata = md
	}
	if req.Active != nil {
		l.Active = *req.Active
	}
	updated, err := s.chart.UpdateLedger(r.Context(), l)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, toLedgerResponse(updated, nil))
}

// deactivateLedger handles DELETE /finance/ledgers/{id} as a soft delete.
func (s *Server) deactivateLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.chart.Deactivate(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	respondMsg(w, http.StatusOK, "ledger deactivated")
}

// getLedgerBalance handles GET /finance/ledgers/{id}/balance?as_of=.
func (s *Server) getLedgerBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			badRequest(w, "invalid as_of")
			return
		}
		asOf = &t
	}
	bal, err := s.balances.LedgerBalance(r.Context(), id, asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, bal)
}

func toLedgerResponse(l finance.Ledger, balanceMinor *int64) ledgerResponse {
	return ledgerResponse{
		ID:                  l.ID,
		GroupID:             l.GroupID,
		Name:                l.Name,
		Code:                l.Code,
		Currency:            l.Currency,
		OpeningBalanceMinor: l.OpeningBalanceMinor,
		BalanceMinor:        balanceMinor,
		Description:         l.Description,
		CreatedBy:           l.CreatedBy,
		Metadata:            map[string]string(l.Metadata),
		Active:              l.Active,
		CreatedAt:           l.CreatedAt,
	}
}
