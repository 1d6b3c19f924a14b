package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/service/budget"
	"github.com/raragao87/opheliahub/internal/service/split"
)

// Accounts

type postAccountRequest struct {
	UserID              uuid.UUID              `json:"user_id"`
	Name                string                 `json:"name"`
	Type                string                 `json:"type"`
	DefaultSign         ledger.Sign            `json:"default_sign"`
	InitialBalanceMinor int64                  `json:"initial_balance_minor"`
	Currency            string                 `json:"currency"`
	Category            ledger.AccountCategory `json:"category"`
	Kind                ledger.AccountKind     `json:"kind"`
	Metadata            map[string]string      `json:"metadata,omitempty"`
}

type patchAccountRequest struct {
	UserID      uuid.UUID              `json:"user_id"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	DefaultSign ledger.Sign            `json:"default_sign"`
	Currency    string                 `json:"currency"`
	Category    ledger.AccountCategory `json:"category"`
	Kind        ledger.AccountKind     `json:"kind"`
	Metadata    map[string]string      `json:"metadata,omitempty"`
	Active      *bool                  `json:"active,omitempty"`
}

type shareRequest struct {
	UserID         uuid.UUID `json:"user_id"`
	CollaboratorID uuid.UUID `json:"collaborator_id"`
}

type accountResponse struct {
	ID                  uuid.UUID              `json:"id"`
	OwnerID             uuid.UUID              `json:"owner_id"`
	Name                string                 `json:"name"`
	Type                string                 `json:"type"`
	DefaultSign         ledger.Sign            `json:"default_sign"`
	InitialBalanceMinor int64                  `json:"initial_balance_minor"`
	BalanceMinor        int64                  `json:"balance_minor"`
	Currency            string                 `json:"currency"`
	Category            ledger.AccountCategory `json:"category"`
	Kind                ledger.AccountKind     `json:"kind"`
	SharedWith          []uuid.UUID            `json:"shared_with,omitempty"`
	Metadata            map[string]string      `json:"metadata,omitempty"`
	Active              bool                   `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:                  a.ID,
		OwnerID:             a.OwnerID,
		Name:                a.Name,
		Type:                a.Type,
		DefaultSign:         a.DefaultSign,
		InitialBalanceMinor: ledger.MinorUnits(a.InitialBalance),
		BalanceMinor:        ledger.MinorUnits(a.Balance),
		Currency:            a.Currency,
		Category:            a.Category,
		Kind:                a.Kind,
		SharedWith:          a.SharedWith,
		Metadata:            a.Metadata,
		Active:              a.Active,
	}
}

type balanceResponse struct {
	AccountID    uuid.UUID `json:"account_id"`
	BalanceMinor int64     `json:"balance_minor"`
	Balance      string    `json:"balance"`
	Currency     string    `json:"currency"`
}

// Account types

type postAccountTypeRequest struct {
	UserID      uuid.UUID           `json:"user_id"`
	Name        string              `json:"name"`
	Category    ledger.TypeCategory `json:"category"`
	DefaultSign ledger.Sign         `json:"default_sign"`
}

type accountTypeResponse struct {
	Name        string              `json:"name"`
	Category    ledger.TypeCategory `json:"category"`
	DefaultSign ledger.Sign         `json:"default_sign"`
	IsCustom    bool                `json:"is_custom"`
}

// Transactions

type postTransactionRequest struct {
	UserID      uuid.UUID         `json:"user_id"`
	AccountID   uuid.UUID         `json:"account_id"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Date        time.Time         `json:"date"`
	Source      ledger.Source     `json:"source,omitempty"`
	TagIDs      []uuid.UUID       `json:"tag_ids,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type patchTransactionRequest struct {
	UserID      uuid.UUID          `json:"user_id"`
	AmountMinor *int64             `json:"amount_minor,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	Description *string            `json:"description,omitempty"`
	Date        *time.Time         `json:"date,omitempty"`
	TagIDs      *[]uuid.UUID       `json:"tag_ids,omitempty"`
	Metadata    *map[string]string `json:"metadata,omitempty"`
}

type transactionResponse struct {
	ID          uuid.UUID         `json:"id"`
	AccountID   uuid.UUID         `json:"account_id"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	AmountMinor int64             `json:"amount_minor"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Date        time.Time         `json:"date"`
	Source      ledger.Source     `json:"source"`
	TagIDs      []uuid.UUID       `json:"tag_ids,omitempty"`
	IsSplit     bool              `json:"is_split"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		OwnerID:     tx.OwnerID,
		AmountMinor: ledger.MinorUnits(tx.Amount),
		Amount:      tx.Amount.String(),
		Currency:    tx.Amount.Curr().Code(),
		Description: tx.Description,
		Date:        tx.Date,
		Source:      tx.Source,
		TagIDs:      tx.TagIDs,
		IsSplit:     tx.IsSplit,
		Metadata:    tx.Metadata,
	}
}

// Splits

type splitSpecRequest struct {
	AmountMinor int64       `json:"amount_minor"`
	Description string      `json:"description"`
	TagIDs      []uuid.UUID `json:"tag_ids,omitempty"`
}

type splitTransactionRequest struct {
	UserID uuid.UUID          `json:"user_id"`
	Splits []splitSpecRequest `json:"splits"`
}

type patchSplitRequest struct {
	UserID      uuid.UUID    `json:"user_id"`
	AmountMinor *int64       `json:"amount_minor,omitempty"`
	Description *string      `json:"description,omitempty"`
	TagIDs      *[]uuid.UUID `json:"tag_ids,omitempty"`
}

type splitResponse struct {
	ID            uuid.UUID   `json:"id"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	AmountMinor   int64       `json:"amount_minor"`
	Description   string      `json:"description"`
	TagIDs        []uuid.UUID `json:"tag_ids,omitempty"`
	Percentage    float64     `json:"percentage"`
}

func toSplitResponse(sp ledger.TransactionSplit, parent ledger.Transaction) splitResponse {
	return splitResponse{
		ID:            sp.ID,
		TransactionID: sp.TransactionID,
		AmountMinor:   ledger.MinorUnits(sp.Amount),
		Description:   sp.Description,
		TagIDs:        sp.TagIDs,
		Percentage:    split.Percentage(sp, parent),
	}
}

// Links

type postLinkRequest struct {
	UserID uuid.UUID       `json:"user_id"`
	AID    uuid.UUID       `json:"a_id"`
	BID    uuid.UUID       `json:"b_id"`
	Kind   ledger.LinkKind `json:"kind"`
}

type linkResponse struct {
	ID   uuid.UUID       `json:"id"`
	AID  uuid.UUID       `json:"a_id"`
	BID  uuid.UUID       `json:"b_id"`
	Kind ledger.LinkKind `json:"kind"`
}

// Tags

type postTagRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Color    string    `json:"color,omitempty"`
	Level    int       `json:"level"`
	ParentID uuid.UUID `json:"parent_id,omitempty"`
}

type patchTagRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Color  string    `json:"color,omitempty"`
}

type moveTagRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	Level    int       `json:"level"`
	ParentID uuid.UUID `json:"parent_id,omitempty"`
}

type bulkTagItem struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}

type bulkUpdateTagsRequest struct {
	UserID uuid.UUID     `json:"user_id"`
	Items  []bulkTagItem `json:"items"`
}

type tagResponse struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id,omitempty"`
	Name       string    `json:"name"`
	Color      string    `json:"color,omitempty"`
	Level      int       `json:"level"`
	ParentID   uuid.UUID `json:"parent_id,omitempty"`
	IsDefault  bool      `json:"is_default"`
	UsageCount int       `json:"usage_count"`
}

type tagNodeResponse struct {
	tagResponse
	Children []tagNodeResponse `json:"children,omitempty"`
}

func toTagResponse(t ledger.Tag) tagResponse {
	return tagResponse{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		Name:       t.Name,
		Color:      t.Color,
		Level:      t.Level,
		ParentID:   t.ParentID,
		IsDefault:  t.IsDefault,
		UsageCount: t.UsageCount,
	}
}

// Budgets

type postBudgetRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Month    int       `json:"month"`
	Year     int       `json:"year"`
	IsActive bool      `json:"is_active,omitempty"`
}

type activateBudgetRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Active bool      `json:"active"`
}

type budgetResponse struct {
	ID       uuid.UUID `json:"id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Name     string    `json:"name"`
	Month    int       `json:"month"`
	Year     int       `json:"year"`
	IsActive bool      `json:"is_active"`
}

func toBudgetResponse(b ledger.Budget) budgetResponse {
	return budgetResponse{ID: b.ID, OwnerID: b.OwnerID, Name: b.Name, Month: int(b.Month), Year: b.Year, IsActive: b.IsActive}
}

type postBudgetItemRequest struct {
	UserID        uuid.UUID   `json:"user_id"`
	Category      string      `json:"category"`
	TagIDs        []uuid.UUID `json:"tag_ids,omitempty"`
	BudgetedMinor int64       `json:"budgeted_minor"`
	Currency      string      `json:"currency"`
}

type budgetItemResponse struct {
	ID            uuid.UUID   `json:"id"`
	BudgetID      uuid.UUID   `json:"budget_id"`
	Category      string      `json:"category"`
	TagIDs        []uuid.UUID `json:"tag_ids,omitempty"`
	BudgetedMinor int64       `json:"budgeted_minor"`
	Currency      string      `json:"currency"`
}

func toBudgetItemResponse(it ledger.BudgetItem) budgetItemResponse {
	return budgetItemResponse{
		ID:            it.ID,
		BudgetID:      it.BudgetID,
		Category:      it.Category,
		TagIDs:        it.TagIDs,
		BudgetedMinor: ledger.MinorUnits(it.BudgetedAmount),
		Currency:      it.BudgetedAmount.Curr().Code(),
	}
}

type budgetItemReportResponse struct {
	ItemID            uuid.UUID   `json:"item_id"`
	Category          string      `json:"category"`
	TagIDs            []uuid.UUID `json:"tag_ids,omitempty"`
	BudgetedMinor     int64       `json:"budgeted_minor"`
	ActualSpentMinor  int64       `json:"actual_spent_minor"`
	RemainingMinor    int64       `json:"remaining_minor"`
	PercentageUsed    float64     `json:"percentage_used"`
	PercentageDisplay float64     `json:"percentage_display"`
}

type budgetReportResponse struct {
	BudgetID              uuid.UUID                  `json:"budget_id"`
	Month                 int                        `json:"month"`
	Year                  int                        `json:"year"`
	TotalBudgetedMinor    int64                      `json:"total_budgeted_minor"`
	TotalSpentMinor       int64                      `json:"total_spent_minor"`
	TotalRemainingMinor   int64                      `json:"total_remaining_minor"`
	OverallPercentageUsed float64                    `json:"overall_percentage_used"`
	Items                 []budgetItemReportResponse `json:"items"`
}

func toBudgetReportResponse(r budget.Report) budgetReportResponse {
	items := make([]budgetItemReportResponse, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, budgetItemReportResponse{
			ItemID:            it.ItemID,
			Category:          it.Category,
			TagIDs:            it.TagIDs,
			BudgetedMinor:     it.BudgetedMinor,
			ActualSpentMinor:  it.ActualSpentMinor,
			RemainingMinor:    it.RemainingMinor,
			PercentageUsed:    it.PercentageUsed,
			PercentageDisplay: it.PercentageDisplay,
		})
	}
	return budgetReportResponse{
		BudgetID:              r.BudgetID,
		Month:                 int(r.Month),
		Year:                  r.Year,
		TotalBudgetedMinor:    r.TotalBudgetedMinor,
		TotalSpentMinor:       r.TotalSpentMinor,
		TotalRemainingMinor:   r.TotalRemainingMinor,
		OverallPercentageUsed: r.OverallPercentageUsed,
		Items:                 items,
	}
}
