package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/service/split"
)

func (s *Server) splitTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeySplitTransaction).(splitTransactionRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	txID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	parent, err := s.store.GetTransaction(r.Context(), req.UserID, txID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	currency := parent.Amount.Curr().Code()
	specs := make([]split.Spec, 0, len(req.Splits))
	for _, sp := range req.Splits {
		amt, err := money.NewAmountFromMinorUnits(currency, sp.AmountMinor)
		if err != nil {
			badRequest(w, "invalid amount")
			return
		}
		specs = append(specs, split.Spec{Amount: amt, Description: sp.Description, TagIDs: sp.TagIDs})
	}
	splits, err := s.splitSvc.Split(r.Context(), req.UserID, txID, specs)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]splitResponse, 0, len(splits))
	for _, sp := range splits {
		out = append(out, toSplitResponse(sp, parent))
	}
	toJSON(w, http.StatusCreated, out)
}

func (s *Server) mergeTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	txID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.splitSvc.Merge(r.Context(), userID, txID); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSplits(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	txID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	parent, err := s.store.GetTransaction(r.Context(), userID, txID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	splits, err := s.splitSvc.Splits(r.Context(), userID, txID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]splitResponse, 0, len(splits))
	for _, sp := range splits {
		out = append(out, toSplitResponse(sp, parent))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) updateSplit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req patchSplitRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	in := split.UpdateInput{Description: req.Description, TagIDs: req.TagIDs}
	if req.AmountMinor != nil {
		current, err := s.store.GetSplit(r.Context(), req.UserID, id)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		amt, err := money.NewAmountFromMinorUnits(current.Amount.Curr().Code(), *req.AmountMinor)
		if err != nil {
			badRequest(w, "invalid amount")
			return
		}
		in.Amount = &amt
	}
	updated, err := s.splitSvc.UpdateSplit(r.Context(), req.UserID, id, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	parent, err := s.store.GetTransaction(r.Context(), req.UserID, updated.TransactionID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSplitResponse(updated, parent))
}
