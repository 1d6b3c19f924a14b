package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/meta"
)

type ctxKey string

const ctxKeyPostAccount ctxKey = "validatedPostAccount"
const ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
const ctxKeySplitTransaction ctxKey = "validatedSplitTransaction"

// validatePostAccount parses POST /v1/accounts, converts to the domain account
// and runs service validation, stashing the result in the request context.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			initial, err := money.NewAmountFromMinorUnits(req.Currency, req.InitialBalanceMinor)
			if err != nil {
				badRequest(w, "invalid currency")
				return
			}
			a := ledger.Account{
				OwnerID:        req.UserID,
				Name:           req.Name,
				Type:           req.Type,
				DefaultSign:    req.DefaultSign,
				InitialBalance: initial,
				Currency:       req.Currency,
				Category:       req.Category,
				Kind:           req.Kind,
				Metadata:       meta.New(req.Metadata),
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostTransaction parses POST /v1/transactions and stashes the domain
// transaction; the service re-validates amount, currency and tags.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postTransactionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.UserID == uuid.Nil || req.AccountID == uuid.Nil {
				badRequest(w, "user_id and account_id are required")
				return
			}
			amt, err := money.NewAmountFromMinorUnits(req.Currency, req.AmountMinor)
			if err != nil {
				badRequest(w, "invalid currency")
				return
			}
			tx := ledger.Transaction{
				AccountID:   req.AccountID,
				OwnerID:     req.UserID,
				Amount:      amt,
				Description: req.Description,
				Date:        req.Date,
				Source:      req.Source,
				TagIDs:      req.TagIDs,
				Metadata:    meta.New(req.Metadata),
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, tx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateSplitTransaction parses POST /v1/transactions/{id}/split. Amounts are
// minor units in the parent's currency, resolved by the handler.
func (s *Server) validateSplitTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req splitTransactionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.UserID == uuid.Nil {
				badRequest(w, "user_id is required")
				return
			}
			if len(req.Splits) == 0 {
				badRequest(w, "at least one split is required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeySplitTransaction, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
