// Package split implements the split engine: a transaction is either Unsplit
// (no children) or Split (one or more children whose amounts sum exactly to the
// parent's). Splitting and merging are all-or-nothing transitions; validation
// runs up front and nothing is persisted on failure.
package split

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/locker"
)

// Spec describes one requested split of a transaction.
type Spec struct {
	Amount      money.Amount
	Description string
	TagIDs      []uuid.UUID
}

// UpdateInput carries partial fields for a split edit; nil leaves the current
// value untouched. Group-sum validation is NOT re-run here; callers batch their
// edits and run ValidateSplits before persisting the final state.
type UpdateInput struct {
	Amount      *money.Amount
	Description *string
	TagIDs      *[]uuid.UUID
}

// SumMismatchError reports that the split amounts do not add up to the parent
// amount, including the remaining delta in minor units.
type SumMismatchError struct {
	Currency       string
	RemainingMinor int64
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("split amounts must sum to the transaction amount (remaining %d minor units %s)", e.RemainingMinor, e.Currency)
}

// Is lets callers detect the mismatch as a validation failure.
func (e *SumMismatchError) Is(target error) bool { return target == errs.ErrInvalid }

// Repo defines read operations needed by the service.
type Repo interface {
	GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error)
	SplitsByTransaction(ctx context.Context, txID uuid.UUID) ([]ledger.TransactionSplit, error)
	GetSplit(ctx context.Context, userID, splitID uuid.UUID) (ledger.TransactionSplit, error)
	TagsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Tag, error)
}

// Writer defines write operations needed by the service. SplitTransaction and
// MergeTransaction are atomic in the storage layer: the split rows and the
// parent's flag change together or not at all.
type Writer interface {
	SplitTransaction(ctx context.Context, userID, txID uuid.UUID, splits []ledger.TransactionSplit) error
	UpdateSplit(ctx context.Context, sp ledger.TransactionSplit) (ledger.TransactionSplit, error)
	MergeTransaction(ctx context.Context, userID, txID uuid.UUID) error
	AdjustTagUsage(ctx context.Context, deltas map[uuid.UUID]int) error
}

// Service exposes the split/merge state machine.
type Service interface {
	ValidateSpecs(parent ledger.Transaction, specs []Spec) error
	Split(ctx context.Context, userID, txID uuid.UUID, specs []Spec) ([]ledger.TransactionSplit, error)
	Splits(ctx context.Context, userID, txID uuid.UUID) ([]ledger.TransactionSplit, error)
	UpdateSplit(ctx context.Context, userID, splitID uuid.UUID, in UpdateInput) (ledger.TransactionSplit, error)
	Merge(ctx context.Context, userID, txID uuid.UUID) error
}

type service struct {
	repo   Repo
	writer Writer
	locks  *locker.Locker
}

func New(repo Repo, writer Writer, locks *locker.Locker) Service {
	return &service{repo: repo, writer: writer, locks: locks}
}

// ValidateSpecs checks the split rules without touching storage: at least one
// spec, non-zero amounts consistent with the parent's direction, non-empty
// descriptions, and an exact minor-unit sum match.
func (s *service) ValidateSpecs(parent ledger.Transaction, specs []Spec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: at least one split is required", errs.ErrInvalid)
	}
	parentMinor := ledger.MinorUnits(parent.Amount)
	var sum int64
	for i, sp := range specs {
		m := ledger.MinorUnits(sp.Amount)
		if m == 0 {
			return fmt.Errorf("%w: split[%d] amount must be non-zero", errs.ErrInvalid, i)
		}
		if parentMinor > 0 && m < 0 || parentMinor < 0 && m > 0 {
			return fmt.Errorf("%w: split[%d] amount direction must match the transaction", errs.ErrInvalid, i)
		}
		if sp.Description == "" {
			return fmt.Errorf("%w: split[%d] description is required", errs.ErrInvalid, i)
		}
		if sp.Amount.Curr().Code() != parent.Amount.Curr().Code() {
			return fmt.Errorf("%w: split[%d] currency mismatch", errs.ErrInvalid, i)
		}
		sum += m
	}
	if sum != parentMinor {
		return &SumMismatchError{Currency: parent.Amount.Curr().Code(), RemainingMinor: parentMinor - sum}
	}
	return nil
}

// Split transitions the transaction from Unsplit to Split, creating one child
// per spec. A single spec covering the whole amount is permitted; it attaches
// richer description/tags without dividing money.
func (s *service) Split(ctx context.Context, userID, txID uuid.UUID, specs []Spec) ([]ledger.TransactionSplit, error) {
	if userID == uuid.Nil || txID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	parent, err := s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(parent.AccountID)
	defer s.locks.Unlock(parent.AccountID)

	parent, err = s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	if parent.IsSplit {
		return nil, errs.ErrAlreadySplit
	}
	if err := s.ValidateSpecs(parent, specs); err != nil {
		return nil, err
	}
	deltas := make(map[uuid.UUID]int)
	for _, sp := range specs {
		if err := s.checkTags(ctx, userID, sp.TagIDs); err != nil {
			return nil, err
		}
		for id := range tagSet(sp.TagIDs) {
			deltas[id]++
		}
	}
	splits := make([]ledger.TransactionSplit, 0, len(specs))
	for _, sp := range specs {
		splits = append(splits, ledger.TransactionSplit{
			ID:            uuid.New(),
			TransactionID: txID,
			Amount:        sp.Amount,
			Description:   sp.Description,
			TagIDs:        sp.TagIDs,
		})
	}
	if err := s.writer.SplitTransaction(ctx, userID, txID, splits); err != nil {
		return nil, err
	}
	if len(deltas) > 0 {
		if err := s.writer.AdjustTagUsage(ctx, deltas); err != nil {
			return nil, err
		}
	}
	return splits, nil
}

func (s *service) Splits(ctx context.Context, userID, txID uuid.UUID) ([]ledger.TransactionSplit, error) {
	if userID == uuid.Nil || txID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.GetTransaction(ctx, userID, txID); err != nil {
		return nil, err
	}
	return s.repo.SplitsByTransaction(ctx, txID)
}

// UpdateSplit edits one split while the parent is Split. The group sum is not
// re-validated here by design; clients batch edits and validate before saving.
func (s *service) UpdateSplit(ctx context.Context, userID, splitID uuid.UUID, in UpdateInput) (ledger.TransactionSplit, error) {
	if userID == uuid.Nil || splitID == uuid.Nil {
		return ledger.TransactionSplit{}, errs.ErrInvalid
	}
	current, err := s.repo.GetSplit(ctx, userID, splitID)
	if err != nil {
		return ledger.TransactionSplit{}, err
	}
	parent, err := s.repo.GetTransaction(ctx, userID, current.TransactionID)
	if err != nil {
		return ledger.TransactionSplit{}, err
	}

	s.locks.Lock(parent.AccountID)
	defer s.locks.Unlock(parent.AccountID)

	if !parent.IsSplit {
		return ledger.TransactionSplit{}, errs.ErrNotSplit
	}
	var oldTags []uuid.UUID
	updated := current
	if in.Amount != nil {
		if ledger.MinorUnits(*in.Amount) == 0 {
			return ledger.TransactionSplit{}, fmt.Errorf("%w: split amount must be non-zero", errs.ErrInvalid)
		}
		if in.Amount.Curr().Code() != parent.Amount.Curr().Code() {
			return ledger.TransactionSplit{}, fmt.Errorf("%w: split currency mismatch", errs.ErrInvalid)
		}
		updated.Amount = *in.Amount
	}
	if in.Description != nil {
		if *in.Description == "" {
			return ledger.TransactionSplit{}, fmt.Errorf("%w: split description is required", errs.ErrInvalid)
		}
		updated.Description = *in.Description
	}
	if in.TagIDs != nil {
		if err := s.checkTags(ctx, userID, *in.TagIDs); err != nil {
			return ledger.TransactionSplit{}, err
		}
		oldTags = current.TagIDs
		updated.TagIDs = *in.TagIDs
	}
	saved, err := s.writer.UpdateSplit(ctx, updated)
	if err != nil {
		return ledger.TransactionSplit{}, err
	}
	if in.TagIDs != nil {
		deltas := make(map[uuid.UUID]int)
		for id := range tagSet(oldTags) {
			deltas[id]--
		}
		for id := range tagSet(updated.TagIDs) {
			deltas[id]++
		}
		for id, d := range deltas {
			if d == 0 {
				delete(deltas, id)
			}
		}
		if len(deltas) > 0 {
			if err := s.writer.AdjustTagUsage(ctx, deltas); err != nil {
				return ledger.TransactionSplit{}, err
			}
		}
	}
	return saved, nil
}

// Merge deletes all splits and returns the transaction to Unsplit. The parent's
// own amount, description and tags were never touched by splitting, so they
// become the sole representation again.
func (s *service) Merge(ctx context.Context, userID, txID uuid.UUID) error {
	if userID == uuid.Nil || txID == uuid.Nil {
		return errs.ErrInvalid
	}
	parent, err := s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return err
	}

	s.locks.Lock(parent.AccountID)
	defer s.locks.Unlock(parent.AccountID)

	parent, err = s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return err
	}
	if !parent.IsSplit {
		return errs.ErrNotSplit
	}
	splits, err := s.repo.SplitsByTransaction(ctx, txID)
	if err != nil {
		return err
	}
	deltas := make(map[uuid.UUID]int)
	for _, sp := range splits {
		for id := range tagSet(sp.TagIDs) {
			deltas[id]--
		}
	}
	if err := s.writer.MergeTransaction(ctx, userID, txID); err != nil {
		return err
	}
	if len(deltas) > 0 {
		return s.writer.AdjustTagUsage(ctx, deltas)
	}
	return nil
}

// Percentage returns the informational share of the parent a split covers.
// A parent amount of zero yields 0 rather than dividing by zero.
func Percentage(sp ledger.TransactionSplit, parent ledger.Transaction) float64 {
	parentMinor := ledger.MinorUnits(parent.Amount)
	if parentMinor == 0 {
		return 0
	}
	return float64(ledger.MinorUnits(sp.Amount)) / float64(parentMinor) * 100
}

func (s *service) checkTags(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tags, err := s.repo.TagsByIDs(ctx, userID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := tags[id]; !ok {
			return fmt.Errorf("%w: unknown tag %s", errs.ErrInvalid, id)
		}
	}
	return nil
}

func tagSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
