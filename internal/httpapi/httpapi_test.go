package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/storage/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(memory.NewStore(), logger).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func createAccount(t *testing.T, h http.Handler, userID uuid.UUID, initialMinor int64) accountResponse {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/accounts", postAccountRequest{
		UserID:              userID,
		Name:                "Main Checking",
		Type:                "checking",
		DefaultSign:         ledger.SignPositive,
		InitialBalanceMinor: initialMinor,
		Currency:            "EUR",
		Category:            ledger.AccountCategoryPersonal,
		Kind:                ledger.AccountKindBank,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account: status %d body %s", rr.Code, rr.Body.String())
	}
	var acc accountResponse
	decode(t, rr, &acc)
	return acc
}

func createTransaction(t *testing.T, h http.Handler, userID, accountID uuid.UUID, minor int64, date time.Time, tags ...uuid.UUID) transactionResponse {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/transactions", postTransactionRequest{
		UserID:      userID,
		AccountID:   accountID,
		AmountMinor: minor,
		Currency:    "EUR",
		Description: "tx",
		Date:        date,
		TagIDs:      tags,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d body %s", rr.Code, rr.Body.String())
	}
	var tx transactionResponse
	decode(t, rr, &tx)
	return tx
}

func createTag(t *testing.T, h http.Handler, userID uuid.UUID, name string, level int, parentID uuid.UUID) tagResponse {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/tags", postTagRequest{
		UserID: userID, Name: name, Level: level, ParentID: parentID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create tag: status %d body %s", rr.Code, rr.Body.String())
	}
	var tag tagResponse
	decode(t, rr, &tag)
	return tag
}

func TestAccountLifecycle(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	collaborator := uuid.New()

	acc := createAccount(t, h, user, 10000)
	if acc.BalanceMinor != 10000 {
		t.Fatalf("balance = %d, want initial 10000", acc.BalanceMinor)
	}

	rr := do(t, h, http.MethodGet, "/v1/accounts/"+acc.ID.String()+"?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: status %d", rr.Code)
	}

	rr = do(t, h, http.MethodPatch, "/v1/accounts/"+acc.ID.String(), patchAccountRequest{
		UserID:      user,
		Name:        "Renamed",
		Type:        acc.Type,
		DefaultSign: acc.DefaultSign,
		Currency:    acc.Currency,
		Category:    acc.Category,
		Kind:        acc.Kind,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rr.Code, rr.Body.String())
	}
	var updated accountResponse
	decode(t, rr, &updated)
	if updated.Name != "Renamed" {
		t.Fatalf("name = %q, want Renamed", updated.Name)
	}

	rr = do(t, h, http.MethodPost, "/v1/accounts/"+acc.ID.String()+"/share", shareRequest{UserID: user, CollaboratorID: collaborator})
	if rr.Code != http.StatusOK {
		t.Fatalf("share: status %d body %s", rr.Code, rr.Body.String())
	}
	var shared accountResponse
	decode(t, rr, &shared)
	if len(shared.SharedWith) != 1 || shared.SharedWith[0] != collaborator {
		t.Fatalf("shared_with = %v", shared.SharedWith)
	}
	// The collaborator can now read the account.
	rr = do(t, h, http.MethodGet, "/v1/accounts/"+acc.ID.String()+"?user_id="+collaborator.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("collaborator get: status %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/v1/accounts/"+acc.ID.String()+"/unshare", shareRequest{UserID: user, CollaboratorID: collaborator})
	if rr.Code != http.StatusOK {
		t.Fatalf("unshare: status %d", rr.Code)
	}

	rr = do(t, h, http.MethodDelete, "/v1/accounts/"+acc.ID.String()+"?user_id="+user.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rr.Code)
	}
	// Soft delete: the account is still readable, just inactive.
	rr = do(t, h, http.MethodGet, "/v1/accounts/"+acc.ID.String()+"?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get after delete: status %d", rr.Code)
	}
	var gone accountResponse
	decode(t, rr, &gone)
	if gone.Active {
		t.Fatal("account still active after delete")
	}
}

func TestPatchKeepsInactiveAccountAndBalance(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	acc := createAccount(t, h, user, 10000)

	rr := do(t, h, http.MethodDelete, "/v1/accounts/"+acc.ID.String()+"?user_id="+user.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rr.Code)
	}

	// A rename without the active field must not reactivate the account or
	// disturb the stored balances.
	rr = do(t, h, http.MethodPatch, "/v1/accounts/"+acc.ID.String(), patchAccountRequest{
		UserID:      user,
		Name:        "Renamed",
		Type:        acc.Type,
		DefaultSign: acc.DefaultSign,
		Currency:    acc.Currency,
		Category:    acc.Category,
		Kind:        acc.Kind,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rr.Code, rr.Body.String())
	}
	var updated accountResponse
	decode(t, rr, &updated)
	if updated.Active {
		t.Fatal("rename reactivated a soft-deleted account")
	}
	if updated.InitialBalanceMinor != 10000 || updated.BalanceMinor != 10000 {
		t.Fatalf("balances after rename = %d/%d, want 10000/10000", updated.InitialBalanceMinor, updated.BalanceMinor)
	}
}

func TestTransactionFlowAndBalance(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	acc := createAccount(t, h, user, 0)
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	createTransaction(t, h, user, acc.ID, -12000, date)
	createTransaction(t, h, user, acc.ID, -8000, date.AddDate(0, 0, 1))
	createTransaction(t, h, user, acc.ID, 5000, date.AddDate(0, 0, 2))

	rr := do(t, h, http.MethodGet, "/v1/transactions?user_id="+user.String()+"&account_id="+acc.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: status %d", rr.Code)
	}
	var txs []transactionResponse
	decode(t, rr, &txs)
	if len(txs) != 3 {
		t.Fatalf("transactions = %d, want 3", len(txs))
	}

	// Derived balance without persisting.
	rr = do(t, h, http.MethodGet, "/v1/accounts/"+acc.ID.String()+"/balance?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("balance: status %d body %s", rr.Code, rr.Body.String())
	}
	var bal balanceResponse
	decode(t, rr, &bal)
	if bal.BalanceMinor != -15000 {
		t.Fatalf("balance = %d, want -15000", bal.BalanceMinor)
	}

	// Refresh persists the cached balance.
	rr = do(t, h, http.MethodPost, "/v1/accounts/"+acc.ID.String()+"/balance/refresh?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: status %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/v1/accounts/"+acc.ID.String()+"?user_id="+user.String(), nil)
	var after accountResponse
	decode(t, rr, &after)
	if after.BalanceMinor != -15000 {
		t.Fatalf("persisted balance = %d, want -15000", after.BalanceMinor)
	}
}

func TestSplitMergeOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	acc := createAccount(t, h, user, 0)
	tx := createTransaction(t, h, user, acc.ID, -9000, time.Now().UTC())

	body := splitTransactionRequest{
		UserID: user,
		Splits: []splitSpecRequest{
			{AmountMinor: -3000, Description: "rent"},
			{AmountMinor: -6000, Description: "utilities"},
		},
	}
	rr := do(t, h, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/split", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("split: status %d body %s", rr.Code, rr.Body.String())
	}
	var splits []splitResponse
	decode(t, rr, &splits)
	if len(splits) != 2 {
		t.Fatalf("splits = %d, want 2", len(splits))
	}
	var sum int64
	for _, sp := range splits {
		sum += sp.AmountMinor
	}
	if sum != -9000 {
		t.Fatalf("split sum = %d, want -9000", sum)
	}

	// Splitting an already-split transaction conflicts.
	rr = do(t, h, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/split", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("re-split: status %d, want 409", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/v1/transactions/"+tx.ID.String()+"/splits?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list splits: status %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/merge?user_id="+user.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("merge: status %d body %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/v1/transactions/"+tx.ID.String()+"/splits?user_id="+user.String(), nil)
	var left []splitResponse
	decode(t, rr, &left)
	if len(left) != 0 {
		t.Fatalf("splits after merge = %d, want 0", len(left))
	}
	// Merging again conflicts.
	rr = do(t, h, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/merge?user_id="+user.String(), nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("re-merge: status %d, want 409", rr.Code)
	}
}

func TestSplitSumMismatchRejected(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	acc := createAccount(t, h, user, 0)
	tx := createTransaction(t, h, user, acc.ID, -10000, time.Now().UTC())

	rr := do(t, h, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/split", splitTransactionRequest{
		UserID: user,
		Splits: []splitSpecRequest{
			{AmountMinor: -4000, Description: "a"},
			{AmountMinor: -5000, Description: "b"},
		},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rr.Code, rr.Body.String())
	}
	var resp errorResponse
	decode(t, rr, &resp)
	if resp.Code != "validation_error" {
		t.Fatalf("code = %q, want validation_error", resp.Code)
	}
}

func TestBudgetVsActualOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	acc := createAccount(t, h, user, 0)
	groceries := createTag(t, h, user, "My Groceries", ledger.LevelCategory, uuid.Nil)

	rr := do(t, h, http.MethodPost, "/v1/budgets", postBudgetRequest{
		UserID: user, Name: "March", Month: 3, Year: 2025,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create budget: status %d body %s", rr.Code, rr.Body.String())
	}
	var b budgetResponse
	decode(t, rr, &b)

	rr = do(t, h, http.MethodPost, "/v1/budgets/"+b.ID.String()+"/items", postBudgetItemRequest{
		UserID: user, Category: "Groceries", TagIDs: []uuid.UUID{groceries.ID}, BudgetedMinor: 50000, Currency: "EUR",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create item: status %d body %s", rr.Code, rr.Body.String())
	}

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	createTransaction(t, h, user, acc.ID, -12000, date, groceries.ID)
	createTransaction(t, h, user, acc.ID, -8000, date.AddDate(0, 0, 1), groceries.ID)
	createTransaction(t, h, user, acc.ID, 5000, date.AddDate(0, 0, 2))

	rr = do(t, h, http.MethodGet, "/v1/budgets/"+b.ID.String()+"/vs-actual?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("vs-actual: status %d body %s", rr.Code, rr.Body.String())
	}
	var report budgetReportResponse
	decode(t, rr, &report)
	if len(report.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(report.Items))
	}
	line := report.Items[0]
	if line.ActualSpentMinor != 20000 || line.RemainingMinor != 30000 {
		t.Fatalf("spent/remaining = %d/%d, want 20000/30000", line.ActualSpentMinor, line.RemainingMinor)
	}
	if line.PercentageUsed != 40 {
		t.Fatalf("percentage = %v, want 40", line.PercentageUsed)
	}
}

func TestTagTreeOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()

	root := createTag(t, h, user, "Home", ledger.LevelCategory, uuid.Nil)
	createTag(t, h, user, "Garden", ledger.LevelSubcategory, root.ID)

	rr := do(t, h, http.MethodGet, "/v1/tags/tree?user_id="+user.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("tree: status %d", rr.Code)
	}
	var roots []tagNodeResponse
	decode(t, rr, &roots)
	var home *tagNodeResponse
	for i := range roots {
		if roots[i].ID == root.ID {
			home = &roots[i]
		}
	}
	if home == nil {
		t.Fatal("created root missing from tree")
	}
	if len(home.Children) != 1 || home.Children[0].Name != "Garden" {
		t.Fatalf("children = %+v", home.Children)
	}

	// Deleting a tag with children conflicts.
	rr = do(t, h, http.MethodDelete, "/v1/tags/"+root.ID.String()+"?user_id="+user.String(), nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete with children: status %d, want 409", rr.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	h := newTestHandler(t)
	user := uuid.New()
	acc := createAccount(t, h, user, 0)

	// Unknown account.
	rr := do(t, h, http.MethodGet, "/v1/accounts/"+uuid.NewString()+"?user_id="+user.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown account: status %d, want 404", rr.Code)
	}
	// Foreign user on an existing account.
	rr = do(t, h, http.MethodGet, "/v1/accounts/"+acc.ID.String()+"?user_id="+uuid.NewString(), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign user: status %d, want 403", rr.Code)
	}
	// Malformed JSON.
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON: status %d, want 400", rec.Code)
	}
	// Unknown fields are rejected.
	req = httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader(`{"surprise":true}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d, want 400", rec.Code)
	}
	// Domain validation surfaces as 422.
	rr = do(t, h, http.MethodPost, "/v1/budgets", postBudgetRequest{UserID: user, Name: "Bad", Month: 13, Year: 2025})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month: status %d, want 422", rr.Code)
	}
	// Missing user_id query parameter.
	rr = do(t, h, http.MethodGet, "/v1/accounts", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: status %d, want 400", rr.Code)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	h := newTestHandler(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, h, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rr.Code)
		}
	}
	rr := do(t, h, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics: status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "opheliahub") {
		t.Fatal("metrics output missing service namespace")
	}
}
