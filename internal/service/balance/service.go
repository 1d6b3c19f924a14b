// Package balance implements the reconciler: an account's balance is always
// derivable as initial balance plus the sum of its transaction amounts, and
// the cached value can be force-persisted when client and server views drift.
package balance

import (
	"context"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/locker"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error)
	TransactionsByAccount(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.Transaction, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	UpdateAccountBalance(ctx context.Context, userID, accountID uuid.UUID, balance money.Amount) error
}

// Service exposes balance recalculation and repair.
type Service interface {
	// Recalculate derives the balance without persisting it.
	Recalculate(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error)
	// ForceUpdate persists the recalculated balance unconditionally. It is
	// idempotent and always safe; drift is repaired, never reported as an error.
	ForceUpdate(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error)
}

type service struct {
	repo   Repo
	writer Writer
	locks  *locker.Locker
}

func New(repo Repo, writer Writer, locks *locker.Locker) Service {
	return &service{repo: repo, writer: writer, locks: locks}
}

func (s *service) Recalculate(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return money.Amount{}, errs.ErrInvalid
	}
	return s.recalculate(ctx, userID, accountID)
}

func (s *service) ForceUpdate(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return money.Amount{}, errs.ErrInvalid
	}
	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	bal, err := s.recalculate(ctx, userID, accountID)
	if err != nil {
		return money.Amount{}, err
	}
	if err := s.writer.UpdateAccountBalance(ctx, userID, accountID, bal); err != nil {
		return money.Amount{}, err
	}
	return bal, nil
}

// recalculate sums transaction amounts on top of the initial balance. A split
// transaction contributes its own amount; splitting only redistributes
// categorization, never money.
func (s *service) recalculate(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error) {
	acc, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return money.Amount{}, err
	}
	txs, err := s.repo.TransactionsByAccount(ctx, userID, accountID)
	if err != nil {
		return money.Amount{}, err
	}
	total := ledger.MinorUnits(acc.InitialBalance)
	for _, tx := range txs {
		total += ledger.MinorUnits(tx.Amount)
	}
	return money.NewAmountFromMinorUnits(acc.Currency, total)
}
