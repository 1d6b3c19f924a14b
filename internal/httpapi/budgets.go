package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/ledger"
)

func (s *Server) postBudget(w http.ResponseWriter, r *http.Request) {
	var req postBudgetRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	created, err := s.budgetSvc.Create(r.Context(), ledger.Budget{
		OwnerID:  req.UserID,
		Name:     req.Name,
		Month:    time.Month(req.Month),
		Year:     req.Year,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	budgets, err := s.budgetSvc.List(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) activateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req activateBudgetRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	b, err := s.budgetSvc.SetActive(r.Context(), req.UserID, id, req.Active)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) postBudgetItem(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req postBudgetItemRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	budgeted, err := money.NewAmountFromMinorUnits(req.Currency, req.BudgetedMinor)
	if err != nil {
		badRequest(w, "invalid currency")
		return
	}
	created, err := s.budgetSvc.AddItem(r.Context(), req.UserID, ledger.BudgetItem{
		BudgetID:       budgetID,
		Category:       req.Category,
		TagIDs:         req.TagIDs,
		BudgetedAmount: budgeted,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBudgetItemResponse(created))
}

func (s *Server) updateBudgetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req postBudgetItemRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	budgeted, err := money.NewAmountFromMinorUnits(req.Currency, req.BudgetedMinor)
	if err != nil {
		badRequest(w, "invalid currency")
		return
	}
	updated, err := s.budgetSvc.UpdateItem(r.Context(), req.UserID, ledger.BudgetItem{
		ID:             id,
		Category:       req.Category,
		TagIDs:         req.TagIDs,
		BudgetedAmount: budgeted,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBudgetItemResponse(updated))
}

func (s *Server) deleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.budgetSvc.DeleteItem(r.Context(), userID, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) budgetVsActual(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	report, err := s.budgetSvc.VsActual(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBudgetReportResponse(report))
}
