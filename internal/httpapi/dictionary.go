package httpapi

import (
	"net/http"

	"github.com/storeops/finledger/internal/dictionary"
	"github.com/storeops/finledger/internal/finance"
)

// GET /finance/dictionary/groups?type=
func (s *Server) getGroupsDictionary(w http.ResponseWriter, r *http.Request) {
	var t *finance.GroupType
	if ts := r.URL.Query().Get("type"); ts != "" {
		tt := finance.GroupType(ts)
		if !tt.Valid() {
			writeErr(w, http.StatusBadRequest, "invalid group type", "invalid_type")
			return
		}
		t = &tt
	}
	// Build response grouped by type
	types := []finance.GroupType{
		finance.GroupTypeAsset, finance.GroupTypeLiability, finance.GroupTypeEquity,
		finance.GroupTypeIncome, finance.GroupTypeExpense,
	}
	type groupItem struct {
		Type   finance.GroupType     `json:"type"`
		Groups []dictionary.GroupDef `json:"groups"`
	}
	items := make([]groupItem, 0, len(types))
	for _, typ := range types {
		if t != nil && *t != typ {
			continue
		}
		typ := typ
		items = append(items, groupItem{Type: typ, Groups: dictionary.GroupsFor(&typ)})
	}
	respond(w, http.StatusOK, struct {
		Items []groupItem `json:"items"`
	}{Items: items})
}
