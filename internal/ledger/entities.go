package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/meta"
)

// Sign describes which direction of a balance is considered "good" for display.
type Sign string

const (
	// SignPositive marks accounts where a larger balance is favourable (bank, assets).
	SignPositive Sign = "positive"
	// SignNegative marks accounts where a larger balance means more owed (loans, cards).
	SignNegative Sign = "negative"
)

// AccountCategory groups accounts on the dashboard.
type AccountCategory string

const (
	AccountCategoryFamily   AccountCategory = "family"
	AccountCategoryPersonal AccountCategory = "personal"
	AccountCategoryAssets   AccountCategory = "assets"
)

// AccountKind distinguishes real bank accounts from budget-only and asset accounts.
type AccountKind string

const (
	AccountKindBank   AccountKind = "bank"
	AccountKindPseudo AccountKind = "pseudo"
	AccountKindAsset  AccountKind = "asset"
)

// TypeCategory is the broad classification of an account type.
type TypeCategory string

const (
	TypeCategoryAsset     TypeCategory = "asset"
	TypeCategoryLiability TypeCategory = "liability"
)

// Source records how a transaction entered the ledger.
type Source string

const (
	SourceManual         Source = "manual"
	SourceCSV            Source = "csv"
	SourceExcel          Source = "excel"
	SourceInitialBalance Source = "initial-balance"
)

// LinkKind classifies a link between two transactions. Links are annotation only;
// they move no money.
type LinkKind string

const (
	LinkKindTransfer LinkKind = "transfer"
	LinkKindPayment  LinkKind = "payment"
	LinkKindRelated  LinkKind = "related"
)

// Tag levels. Stored 0-based; the UI presents them as four named tiers.
const (
	LevelCategory    = 0
	LevelSubcategory = 1
	LevelTagGroup    = 2
	LevelTag         = 3
)

// User captures the owner of ledger data.
type User struct {
	ID    uuid.UUID
	Email *string
}

// AccountType names an account flavour (checking, mortgage, ...). Built-in types
// coexist with user-defined custom types; built-ins are immutable.
type AccountType struct {
	Name        string
	Category    TypeCategory
	DefaultSign Sign
	IsCustom    bool
	// OwnerID is set only for custom types; a custom type is deletable by its owner.
	OwnerID uuid.UUID
}

// Account represents a balance-holding entity belonging to a user.
type Account struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
	// Type names an AccountType.
	Type        string
	DefaultSign Sign
	// InitialBalance is the opening amount; Balance is derived and cached.
	// Invariant: Balance == InitialBalance + sum of non-deleted transaction amounts.
	InitialBalance money.Amount
	Balance        money.Amount
	Currency       string
	Category       AccountCategory
	Kind           AccountKind
	// SharedWith lists collaborator user ids with access to this account.
	SharedWith []uuid.UUID
	// Metadata holds additional key-value attributes for the account.
	Metadata meta.Metadata `json:"metadata,omitempty"`
	// Active indicates whether the account is active (soft-delete when false).
	Active bool
}

// SharedWithUser reports whether the account is shared with the given user.
func (a Account) SharedWithUser(userID uuid.UUID) bool {
	for _, id := range a.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// AccessibleBy reports whether the user owns the account or has it shared with them.
func (a Account) AccessibleBy(userID uuid.UUID) bool {
	return a.OwnerID == userID || a.SharedWithUser(userID)
}

// Transaction is a dated, signed money movement against one account.
// Positive amounts are inflows, negative amounts outflows.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	OwnerID     uuid.UUID
	Amount      money.Amount
	Description string
	Date        time.Time
	Source      Source
	// TagIDs categorize the transaction. Once the transaction is split, the
	// splits, not the parent, are the unit of categorization.
	TagIDs []uuid.UUID
	// IsSplit is true iff the transaction has at least one split child.
	IsSplit  bool
	Metadata meta.Metadata `json:"metadata,omitempty"`
}

// TransactionSplit decomposes part of a transaction with its own description and tags.
// Invariant: the split amounts of a transaction sum exactly to the parent amount.
type TransactionSplit struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Amount        money.Amount
	Description   string
	TagIDs        []uuid.UUID
}

// Tag is a hierarchical categorization label across four levels.
// Invariant: Level == parent.Level+1, or 0 for roots.
type Tag struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Name     string
	Color    string
	Level    int
	ParentID uuid.UUID
	// IsDefault marks system-seeded tags, which are read-only.
	IsDefault bool
	// UsageCount tracks how many transactions/splits currently reference the tag.
	UsageCount int
}

// Budget is a monthly spending plan.
type Budget struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Name     string
	Month    time.Month
	Year     int
	IsActive bool
}

// Window returns the budget's half-open time range [start, end).
func (b Budget) Window() (time.Time, time.Time) {
	start := time.Date(b.Year, b.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the budget's month.
func (b Budget) Contains(t time.Time) bool {
	start, end := b.Window()
	tu := t.UTC()
	return !tu.Before(start) && tu.Before(end)
}

// BudgetItem is one tag-matched allotment inside a budget. Budget-vs-actual
// figures are always derived, never stored.
type BudgetItem struct {
	ID             uuid.UUID
	BudgetID       uuid.UUID
	Category       string
	TagIDs         []uuid.UUID
	BudgetedAmount money.Amount
}

// TransactionLink is a symmetric annotation between two transactions, used to
// reconcile transfers between accounts.
type TransactionLink struct {
	ID   uuid.UUID
	AID  uuid.UUID
	BID  uuid.UUID
	Kind LinkKind
}

// MinorUnits returns the amount in minor units (cents). The second return of
// money.Amount.MinorUnits reports whether the amount fits in int64, which holds
// for every value this service accepts.
func MinorUnits(a money.Amount) int64 {
	v, _ := a.MinorUnits()
	return v
}

// AbsMinor returns the magnitude of the amount in minor units.
func AbsMinor(a money.Amount) int64 {
	v := MinorUnits(a)
	if v < 0 {
		return -v
	}
	return v
}
