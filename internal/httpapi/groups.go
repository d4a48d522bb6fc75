package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
)

// postGroup handles POST /finance/account-groups.
func (s *Server) postGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := r.Context().Value(ctxKeyPostGroup).(finance.AccountGroup)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.chart.CreateGroup(r.Context(), g)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusCreated, toGroupResponse(created))
}

// listGroups handles GET /finance/account-groups.
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.chart.ListGroups(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	respond(w, http.StatusOK, out)
}

// getGroup handles GET /finance/account-groups/{id}.
func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	g, err := s.chart.GetGroup(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, toGroupResponse(g))
}

// patchGroup handles PATCH /finance/account-groups/{id}. Type is immutable;
// attempting to change it yields 409.
func (s *Server) patchGroup(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req patchGroupRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	current, err := s.chart.GetGroup(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	g := current
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Type != nil {
		g.Type = *req.Type
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	if req.Active != nil {
		g.Active = *req.Active
	}
	updated, err := s.chart.UpdateGroup(r.Context(), g)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, toGroupResponse(updated))
}

func toGroupResponse(g finance.AccountGroup) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, Type: g.Type, Description: g.Description, Active: g.Active}
}
