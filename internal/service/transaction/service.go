// Package transaction implements the ledger: create/update/delete of dated,
// signed money movements against one account, tag assignment with usage
// counting, and annotation links between transactions.
//
// The ledger never reconciles account balances implicitly; callers run the
// balance service after each mutation so write cost stays predictable.
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/locker"
	"github.com/raragao87/opheliahub/internal/meta"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error)
	GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error)
	// TransactionsByAccount returns the account's transactions ordered by date descending.
	TransactionsByAccount(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.Transaction, error)
	SplitsByTransaction(ctx context.Context, txID uuid.UUID) ([]ledger.TransactionSplit, error)
	TagsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Tag, error)
	GetTransactionLink(ctx context.Context, linkID uuid.UUID) (ledger.TransactionLink, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	// DeleteTransaction removes the transaction and cascades to its splits.
	DeleteTransaction(ctx context.Context, userID, txID uuid.UUID) error
	// AdjustTagUsage applies usage-count deltas, flooring each counter at zero.
	AdjustTagUsage(ctx context.Context, deltas map[uuid.UUID]int) error
	CreateTransactionLink(ctx context.Context, l ledger.TransactionLink) (ledger.TransactionLink, error)
	DeleteTransactionLink(ctx context.Context, linkID uuid.UUID) error
}

// UpdateInput carries the partial fields of an update; nil pointers leave the
// current value untouched.
type UpdateInput struct {
	Amount      *money.Amount
	Description *string
	Date        *time.Time
	TagIDs      *[]uuid.UUID
	Metadata    *meta.Metadata
}

// Service exposes the transaction ledger operations.
type Service interface {
	Create(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	Update(ctx context.Context, userID, txID uuid.UUID, in UpdateInput) (ledger.Transaction, error)
	Delete(ctx context.Context, userID, txID uuid.UUID) error
	ListByAccount(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.Transaction, error)
	Link(ctx context.Context, userID uuid.UUID, aID, bID uuid.UUID, kind ledger.LinkKind) (ledger.TransactionLink, error)
	Unlink(ctx context.Context, userID, linkID uuid.UUID) error
}

type service struct {
	repo   Repo
	writer Writer
	locks  *locker.Locker
}

func New(repo Repo, writer Writer, locks *locker.Locker) Service {
	return &service{repo: repo, writer: writer, locks: locks}
}

func (s *service) Create(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if tx.OwnerID == uuid.Nil || tx.AccountID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	if tx.Description == "" {
		return ledger.Transaction{}, errors.New("description is required")
	}
	if ledger.MinorUnits(tx.Amount) == 0 {
		return ledger.Transaction{}, errors.New("amount must be non-zero")
	}
	switch tx.Source {
	case ledger.SourceManual, ledger.SourceCSV, ledger.SourceExcel, ledger.SourceInitialBalance:
	case "":
		tx.Source = ledger.SourceManual
	default:
		return ledger.Transaction{}, errors.New("invalid source")
	}
	if err := tx.Metadata.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	acc, err := s.repo.GetAccount(ctx, tx.OwnerID, tx.AccountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if tx.Amount.Curr().Code() != acc.Currency {
		return ledger.Transaction{}, errors.New("transaction currency must match account currency")
	}
	if err := s.checkTags(ctx, tx.OwnerID, tx.TagIDs); err != nil {
		return ledger.Transaction{}, err
	}

	s.locks.Lock(tx.AccountID)
	defer s.locks.Unlock(tx.AccountID)

	tx.ID = uuid.New()
	tx.IsSplit = false
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	created, err := s.writer.CreateTransaction(ctx, tx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if len(tx.TagIDs) > 0 {
		if err := s.writer.AdjustTagUsage(ctx, usageDeltas(nil, tx.TagIDs)); err != nil {
			return ledger.Transaction{}, err
		}
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, userID, txID uuid.UUID, in UpdateInput) (ledger.Transaction, error) {
	if userID == uuid.Nil || txID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	current, err := s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.locks.Lock(current.AccountID)
	defer s.locks.Unlock(current.AccountID)

	// Re-read under the lock so concurrent updates cannot interleave.
	current, err = s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	var oldTags []uuid.UUID
	updated := current
	if in.Amount != nil {
		if current.IsSplit {
			// Changing the parent amount would break the split-sum invariant.
			return ledger.Transaction{}, errs.ErrAlreadySplit
		}
		if ledger.MinorUnits(*in.Amount) == 0 {
			return ledger.Transaction{}, errors.New("amount must be non-zero")
		}
		acc, err := s.repo.GetAccount(ctx, userID, current.AccountID)
		if err != nil {
			return ledger.Transaction{}, err
		}
		if in.Amount.Curr().Code() != acc.Currency {
			return ledger.Transaction{}, errors.New("transaction currency must match account currency")
		}
		updated.Amount = *in.Amount
	}
	if in.Description != nil {
		if *in.Description == "" {
			return ledger.Transaction{}, errors.New("description is required")
		}
		updated.Description = *in.Description
	}
	if in.Date != nil {
		updated.Date = *in.Date
	}
	if in.TagIDs != nil {
		// Tags on a split transaction are carried by the splits; editing the
		// parent's set is rejected rather than silently ignored.
		if current.IsSplit {
			return ledger.Transaction{}, errs.ErrAlreadySplit
		}
		if err := s.checkTags(ctx, userID, *in.TagIDs); err != nil {
			return ledger.Transaction{}, err
		}
		oldTags = current.TagIDs
		updated.TagIDs = *in.TagIDs
	}
	if in.Metadata != nil {
		if err := in.Metadata.Validate(); err != nil {
			return ledger.Transaction{}, err
		}
		updated.Metadata = *in.Metadata
	}
	saved, err := s.writer.UpdateTransaction(ctx, updated)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if in.TagIDs != nil {
		if err := s.writer.AdjustTagUsage(ctx, usageDeltas(oldTags, updated.TagIDs)); err != nil {
			return ledger.Transaction{}, err
		}
	}
	return saved, nil
}

func (s *service) Delete(ctx context.Context, userID, txID uuid.UUID) error {
	if userID == uuid.Nil || txID == uuid.Nil {
		return errs.ErrInvalid
	}
	tx, err := s.repo.GetTransaction(ctx, userID, txID)
	if err != nil {
		return err
	}

	s.locks.Lock(tx.AccountID)
	defer s.locks.Unlock(tx.AccountID)

	deltas := usageDeltas(tx.TagIDs, nil)
	if tx.IsSplit {
		splits, err := s.repo.SplitsByTransaction(ctx, txID)
		if err != nil {
			return err
		}
		for _, sp := range splits {
			for k, v := range usageDeltas(sp.TagIDs, nil) {
				deltas[k] += v
			}
		}
	}
	if err := s.writer.DeleteTransaction(ctx, userID, txID); err != nil {
		return err
	}
	if len(deltas) > 0 {
		return s.writer.AdjustTagUsage(ctx, deltas)
	}
	return nil
}

func (s *service) ListByAccount(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.Transaction, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.repo.TransactionsByAccount(ctx, userID, accountID)
}

// Link attaches a symmetric annotation between two of the user's transactions.
func (s *service) Link(ctx context.Context, userID uuid.UUID, aID, bID uuid.UUID, kind ledger.LinkKind) (ledger.TransactionLink, error) {
	if userID == uuid.Nil || aID == uuid.Nil || bID == uuid.Nil {
		return ledger.TransactionLink{}, errs.ErrInvalid
	}
	if aID == bID {
		return ledger.TransactionLink{}, errors.New("cannot link a transaction to itself")
	}
	switch kind {
	case ledger.LinkKindTransfer, ledger.LinkKindPayment, ledger.LinkKindRelated:
	default:
		return ledger.TransactionLink{}, errors.New("invalid link kind")
	}
	if _, err := s.repo.GetTransaction(ctx, userID, aID); err != nil {
		return ledger.TransactionLink{}, err
	}
	if _, err := s.repo.GetTransaction(ctx, userID, bID); err != nil {
		return ledger.TransactionLink{}, err
	}
	l := ledger.TransactionLink{ID: uuid.New(), AID: aID, BID: bID, Kind: kind}
	return s.writer.CreateTransactionLink(ctx, l)
}

// Unlink removes a link. The caller must be able to access at least one of the
// linked transactions.
func (s *service) Unlink(ctx context.Context, userID, linkID uuid.UUID) error {
	if userID == uuid.Nil || linkID == uuid.Nil {
		return errs.ErrInvalid
	}
	l, err := s.repo.GetTransactionLink(ctx, linkID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetTransaction(ctx, userID, l.AID); err != nil {
		if _, berr := s.repo.GetTransaction(ctx, userID, l.BID); berr != nil {
			return err
		}
	}
	return s.writer.DeleteTransactionLink(ctx, linkID)
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
			return errors.New("unknown tag: " + id.String())
		}
	}
	return nil
}

// usageDeltas computes per-tag usage adjustments when a tag set changes from
// old to new. Duplicate ids within a set count once.
func usageDeltas(old, new []uuid.UUID) map[uuid.UUID]int {
	deltas := make(map[uuid.UUID]int)
	seen := make(map[uuid.UUID]struct{}, len(old))
	for _, id := range old {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deltas[id]--
	}
	seen = make(map[uuid.UUID]struct{}, len(new))
	for _, id := range new {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deltas[id]++
	}
	for id, d := range deltas {
		if d == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}
