package httpapi

import (
	"errors"
	"net/http"

	"github.com/storeops/finledger/internal/errs"
)

// inventoryValuation handles GET /finance/inventory-assets/realtime-calculation.
// Catalog failure returns 502 with the snapshot carrying an explicit error
// field; numbers are never served stale.
func (s *Server) inventoryValuation(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stock.Reconcile(r.Context())
	if err != nil {
		if errors.Is(err, errs.ErrUpstream) {
			toJSON(w, http.StatusBadGateway, envelope{Success: false, Data: snap, Error: err.Error(), Code: "upstream_error"})
			return
		}
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, snap)
}
