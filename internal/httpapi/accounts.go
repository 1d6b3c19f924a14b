package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/meta"
)

// parseUserID reads the user_id query parameter.
func parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		badRequest(w, "user_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid user_id")
		return uuid.Nil, false
	}
	return id, true
}

// parseIDParam reads a UUID path parameter.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := r.Context().Value(ctxKeyPostAccount).(ledger.Account)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.accountSvc.Create(r.Context(), a)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	accs, err := s.accountSvc.List(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	a, err := s.accountSvc.Get(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req patchAccountRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a := ledger.Account{
		ID:          id,
		OwnerID:     req.UserID,
		Name:        req.Name,
		Type:        req.Type,
		DefaultSign: req.DefaultSign,
		Currency:    req.Currency,
		Category:    req.Category,
		Kind:        req.Kind,
		Metadata:    meta.New(req.Metadata),
	}
	// An omitted active field keeps the stored state; a rename must not
	// reactivate a soft-deleted account.
	if req.Active != nil {
		a.Active = *req.Active
	} else {
		current, err := s.accountSvc.Get(r.Context(), req.UserID, id)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		a.Active = current.Active
	}
	updated, err := s.accountSvc.Update(r.Context(), a)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(updated))
}

func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.accountSvc.Deactivate(r.Context(), userID, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) shareAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a, err := s.accountSvc.Share(r.Context(), req.UserID, id, req.CollaboratorID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) unshareAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a, err := s.accountSvc.Unshare(r.Context(), req.UserID, id, req.CollaboratorID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

// getAccountBalance derives the balance from initial balance plus transactions
// without persisting it.
func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	bal, err := s.balanceSvc.Recalculate(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{
		AccountID:    id,
		BalanceMinor: ledger.MinorUnits(bal),
		Balance:      bal.String(),
		Currency:     bal.Curr().Code(),
	})
}

// refreshAccountBalance recalculates and persists the cached balance.
func (s *Server) refreshAccountBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	bal, err := s.balanceSvc.ForceUpdate(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{
		AccountID:    id,
		BalanceMinor: ledger.MinorUnits(bal),
		Balance:      bal.String(),
		Currency:     bal.Curr().Code(),
	})
}

func (s *Server) listAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.accountSvc.ListTypes(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]accountTypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, accountTypeResponse{Name: t.Name, Category: t.Category, DefaultSign: t.DefaultSign, IsCustom: t.IsCustom})
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postAccountType(w http.ResponseWriter, r *http.Request) {
	var req postAccountTypeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	created, err := s.accountSvc.CreateCustomType(r.Context(), ledger.AccountType{
		Name:        req.Name,
		Category:    req.Category,
		DefaultSign: req.DefaultSign,
		OwnerID:     req.UserID,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, accountTypeResponse{Name: created.Name, Category: created.Category, DefaultSign: created.DefaultSign, IsCustom: created.IsCustom})
}

func (s *Server) deleteAccountType(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.accountSvc.DeleteCustomType(r.Context(), userID, name); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
