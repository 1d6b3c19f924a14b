// Package budget implements the monthly budget engine: plans broken into
// tag-matched category allotments, and the budget-vs-actual rollup derived by
// matching transaction tags against each item. Rollups are computed on demand
// and never stored.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetBudget(ctx context.Context, ownerID, budgetID uuid.UUID) (ledger.Budget, error)
	ListBudgets(ctx context.Context, ownerID uuid.UUID) ([]ledger.Budget, error)
	ItemsByBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error)
	GetBudgetItem(ctx context.Context, itemID uuid.UUID) (ledger.BudgetItem, error)
	// TransactionsInRange returns the owner's transactions across all accounts
	// with date in [from, to).
	TransactionsInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error)
	SplitsByTransaction(ctx context.Context, txID uuid.UUID) ([]ledger.TransactionSplit, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	CreateBudgetItem(ctx context.Context, it ledger.BudgetItem) (ledger.BudgetItem, error)
	UpdateBudgetItem(ctx context.Context, it ledger.BudgetItem) (ledger.BudgetItem, error)
	DeleteBudgetItem(ctx context.Context, itemID uuid.UUID) error
}

// ItemReport is the derived budget-vs-actual line for one item. Amounts are in
// minor units of the owner's transaction currencies; spend is an absolute sum.
type ItemReport struct {
	ItemID            uuid.UUID
	Category          string
	TagIDs            []uuid.UUID
	BudgetedMinor     int64
	ActualSpentMinor  int64
	RemainingMinor    int64
	PercentageUsed    float64
	PercentageDisplay float64
}

// Report aggregates all items of one budget.
type Report struct {
	BudgetID              uuid.UUID
	Month                 time.Month
	Year                  int
	TotalBudgetedMinor    int64
	TotalSpentMinor       int64
	TotalRemainingMinor   int64
	OverallPercentageUsed float64
	Items                 []ItemReport
}

// Service exposes budget management and the vs-actual rollup.
type Service interface {
	Create(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]ledger.Budget, error)
	SetActive(ctx context.Context, ownerID, budgetID uuid.UUID, active bool) (ledger.Budget, error)
	AddItem(ctx context.Context, ownerID uuid.UUID, it ledger.BudgetItem) (ledger.BudgetItem, error)
	UpdateItem(ctx context.Context, ownerID uuid.UUID, it ledger.BudgetItem) (ledger.BudgetItem, error)
	DeleteItem(ctx context.Context, ownerID, itemID uuid.UUID) error
	VsActual(ctx context.Context, ownerID, budgetID uuid.UUID) (Report, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Create(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	if b.OwnerID == uuid.Nil {
		return ledger.Budget{}, errs.ErrInvalid
	}
	if b.Month < time.January || b.Month > time.December {
		return ledger.Budget{}, fmt.Errorf("%w: month must be 1-12", errs.ErrInvalid)
	}
	if b.Year < 1970 || b.Year > 9999 {
		return ledger.Budget{}, fmt.Errorf("%w: invalid year", errs.ErrInvalid)
	}
	b.ID = uuid.New()
	return s.writer.CreateBudget(ctx, b)
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]ledger.Budget, error) {
	if ownerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListBudgets(ctx, ownerID)
}

func (s *service) SetActive(ctx context.Context, ownerID, budgetID uuid.UUID, active bool) (ledger.Budget, error) {
	b, err := s.repo.GetBudget(ctx, ownerID, budgetID)
	if err != nil {
		return ledger.Budget{}, err
	}
	b.IsActive = active
	return s.writer.UpdateBudget(ctx, b)
}

func (s *service) AddItem(ctx context.Context, ownerID uuid.UUID, it ledger.BudgetItem) (ledger.BudgetItem, error) {
	if ownerID == uuid.Nil || it.BudgetID == uuid.Nil {
		return ledger.BudgetItem{}, errs.ErrInvalid
	}
	if it.Category == "" {
		return ledger.BudgetItem{}, fmt.Errorf("%w: category label is required", errs.ErrInvalid)
	}
	if ledger.MinorUnits(it.BudgetedAmount) < 0 {
		return ledger.BudgetItem{}, fmt.Errorf("%w: budgeted amount cannot be negative", errs.ErrInvalid)
	}
	if _, err := s.repo.GetBudget(ctx, ownerID, it.BudgetID); err != nil {
		return ledger.BudgetItem{}, err
	}
	it.ID = uuid.New()
	return s.writer.CreateBudgetItem(ctx, it)
}

func (s *service) UpdateItem(ctx context.Context, ownerID uuid.UUID, it ledger.BudgetItem) (ledger.BudgetItem, error) {
	if ownerID == uuid.Nil || it.ID == uuid.Nil {
		return ledger.BudgetItem{}, errs.ErrInvalid
	}
	current, err := s.repo.GetBudgetItem(ctx, it.ID)
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	if _, err := s.repo.GetBudget(ctx, ownerID, current.BudgetID); err != nil {
		return ledger.BudgetItem{}, err
	}
	if it.Category == "" {
		return ledger.BudgetItem{}, fmt.Errorf("%w: category label is required", errs.ErrInvalid)
	}
	if ledger.MinorUnits(it.BudgetedAmount) < 0 {
		return ledger.BudgetItem{}, fmt.Errorf("%w: budgeted amount cannot be negative", errs.ErrInvalid)
	}
	current.Category = it.Category
	current.TagIDs = it.TagIDs
	current.BudgetedAmount = it.BudgetedAmount
	return s.writer.UpdateBudgetItem(ctx, current)
}

func (s *service) DeleteItem(ctx context.Context, ownerID, itemID uuid.UUID) error {
	if ownerID == uuid.Nil || itemID == uuid.Nil {
		return errs.ErrInvalid
	}
	it, err := s.repo.GetBudgetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetBudget(ctx, ownerID, it.BudgetID); err != nil {
		return err
	}
	return s.writer.DeleteBudgetItem(ctx, itemID)
}

// VsActual computes the budget-vs-actual rollup. Spend per item is the sum of
// absolute transaction amounts in the budget month whose tags overlap the
// item's tags; split transactions contribute through their splits instead of
// the parent. Tag overlap is any intersection, so one transaction can count
// toward several items; budgets with overlapping categories will total more
// than raw spend.
func (s *service) VsActual(ctx context.Context, ownerID, budgetID uuid.UUID) (Report, error) {
	if ownerID == uuid.Nil || budgetID == uuid.Nil {
		return Report{}, errs.ErrInvalid
	}
	b, err := s.repo.GetBudget(ctx, ownerID, budgetID)
	if err != nil {
		return Report{}, err
	}
	items, err := s.repo.ItemsByBudget(ctx, budgetID)
	if err != nil {
		return Report{}, err
	}
	report := Report{BudgetID: b.ID, Month: b.Month, Year: b.Year, Items: make([]ItemReport, 0, len(items))}
	if len(items) == 0 {
		return report, nil
	}

	from, to := b.Window()
	txs, err := s.repo.TransactionsInRange(ctx, ownerID, from, to)
	if err != nil {
		return Report{}, err
	}
	// One tagged amount per categorized unit: the transaction itself, or its
	// splits once split.
	type taggedAmount struct {
		absMinor int64
		tags     map[uuid.UUID]struct{}
	}
	units := make([]taggedAmount, 0, len(txs))
	for _, tx := range txs {
		if tx.IsSplit {
			splits, err := s.repo.SplitsByTransaction(ctx, tx.ID)
			if err != nil {
				return Report{}, err
			}
			for _, sp := range splits {
				if len(sp.TagIDs) == 0 {
					continue
				}
				units = append(units, taggedAmount{absMinor: ledger.AbsMinor(sp.Amount), tags: toSet(sp.TagIDs)})
			}
			continue
		}
		if len(tx.TagIDs) == 0 {
			continue
		}
		units = append(units, taggedAmount{absMinor: ledger.AbsMinor(tx.Amount), tags: toSet(tx.TagIDs)})
	}

	for _, it := range items {
		var spent int64
		for _, u := range units {
			if intersects(u.tags, it.TagIDs) {
				spent += u.absMinor
			}
		}
		budgeted := ledger.MinorUnits(it.BudgetedAmount)
		line := ItemReport{
			ItemID:           it.ID,
			Category:         it.Category,
			TagIDs:           it.TagIDs,
			BudgetedMinor:    budgeted,
			ActualSpentMinor: spent,
			RemainingMinor:   budgeted - spent,
		}
		if budgeted > 0 {
			line.PercentageUsed = float64(spent) / float64(budgeted) * 100
			line.PercentageDisplay = line.PercentageUsed
			if line.PercentageDisplay > 100 {
				line.PercentageDisplay = 100
			}
		}
		report.Items = append(report.Items, line)
		report.TotalBudgetedMinor += budgeted
		report.TotalSpentMinor += spent
	}
	report.TotalRemainingMinor = report.TotalBudgetedMinor - report.TotalSpentMinor
	if report.TotalBudgetedMinor > 0 {
		report.OverallPercentageUsed = float64(report.TotalSpentMinor) / float64(report.TotalBudgetedMinor) * 100
	}
	return report, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func intersects(set map[uuid.UUID]struct{}, ids []uuid.UUID) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
