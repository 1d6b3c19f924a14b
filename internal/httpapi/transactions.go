package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/meta"
	"github.com/raragao87/opheliahub/internal/service/transaction"
)

func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := r.Context().Value(ctxKeyPostTransaction).(ledger.Transaction)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.txSvc.Create(r.Context(), tx)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		badRequest(w, "invalid account_id")
		return
	}
	txs, err := s.txSvc.ListByAccount(r.Context(), userID, accountID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req patchTransactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	in := transaction.UpdateInput{
		Description: req.Description,
		Date:        req.Date,
		TagIDs:      req.TagIDs,
	}
	if req.AmountMinor != nil {
		currency := req.Currency
		if currency == "" {
			current, err := s.store.GetTransaction(r.Context(), req.UserID, id)
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			currency = current.Amount.Curr().Code()
		}
		amt, err := money.NewAmountFromMinorUnits(currency, *req.AmountMinor)
		if err != nil {
			badRequest(w, "invalid currency")
			return
		}
		in.Amount = &amt
	}
	if req.Metadata != nil {
		m := meta.New(*req.Metadata)
		in.Metadata = &m
	}
	updated, err := s.txSvc.Update(r.Context(), req.UserID, id, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.txSvc.Delete(r.Context(), userID, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postLink(w http.ResponseWriter, r *http.Request) {
	var req postLinkRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	l, err := s.txSvc.Link(r.Context(), req.UserID, req.AID, req.BID, req.Kind)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, linkResponse{ID: l.ID, AID: l.AID, BID: l.BID, Kind: l.Kind})
}

func (s *Server) deleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.txSvc.Unlink(r.Context(), userID, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
