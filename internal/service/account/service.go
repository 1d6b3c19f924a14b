// Package account implements the account rules: typed accounts with a display
// sign convention, an editable descriptive surface over an immutable identity
// (owner, currency), soft-deletes, sharing, and custom account types.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/slug"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error)
	ListAccountTypes(ctx context.Context) ([]ledger.AccountType, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	CreateAccountType(ctx context.Context, t ledger.AccountType) (ledger.AccountType, error)
	DeleteAccountType(ctx context.Context, name string) error
}

// Service exposes account and account-type management.
type Service interface {
	ValidateCreate(ctx context.Context, a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]ledger.Account, error)
	Get(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error)
	Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Deactivate(ctx context.Context, ownerID, accountID uuid.UUID) error
	Share(ctx context.Context, ownerID, accountID, collaboratorID uuid.UUID) (ledger.Account, error)
	Unshare(ctx context.Context, ownerID, accountID, collaboratorID uuid.UUID) (ledger.Account, error)
	ListTypes(ctx context.Context) ([]ledger.AccountType, error)
	CreateCustomType(ctx context.Context, t ledger.AccountType) (ledger.AccountType, error)
	DeleteCustomType(ctx context.Context, ownerID uuid.UUID, name string) error
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// ErrNameExists indicates an account type with the same name already exists.
var ErrNameExists = errors.New("account type name already exists")

func (s *service) ValidateCreate(ctx context.Context, a ledger.Account) error {
	if a.OwnerID == uuid.Nil {
		return errs.ErrInvalid
	}
	if a.Name == "" {
		return errors.New("name is required")
	}
	if a.Currency == "" {
		return errors.New("currency is required")
	}
	switch a.DefaultSign {
	case ledger.SignPositive, ledger.SignNegative:
	default:
		return errors.New("default_sign must be positive or negative")
	}
	switch a.Category {
	case ledger.AccountCategoryFamily, ledger.AccountCategoryPersonal, ledger.AccountCategoryAssets:
	default:
		return errors.New("invalid account category")
	}
	switch a.Kind {
	case ledger.AccountKindBank, ledger.AccountKindPseudo, ledger.AccountKindAsset:
	default:
		return errors.New("invalid account kind")
	}
	if _, err := s.typeByName(ctx, a.Type); err != nil {
		return errors.New("unknown account type: " + a.Type)
	}
	return a.Metadata.Validate()
}

func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	a.Type = slug.Slugify(a.Type)
	if err := s.ValidateCreate(ctx, a); err != nil {
		return ledger.Account{}, err
	}
	acc := ledger.Account{
		ID:             uuid.New(),
		OwnerID:        a.OwnerID,
		Name:           a.Name,
		Type:           a.Type,
		DefaultSign:    a.DefaultSign,
		InitialBalance: a.InitialBalance,
		Balance:        a.InitialBalance,
		Currency:       a.Currency,
		Category:       a.Category,
		Kind:           a.Kind,
		Metadata:       a.Metadata,
		Active:         true,
	}
	return s.writer.CreateAccount(ctx, acc)
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]ledger.Account, error) {
	if ownerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListAccounts(ctx, ownerID)
}

func (s *service) Get(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, userID, accountID)
}

// Update applies allowed changes. Owner and currency are immutable; balance is
// derived and never written here (the balance service owns it).
func (s *service) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if a.OwnerID == uuid.Nil || a.ID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	current, err := s.repo.GetAccount(ctx, a.OwnerID, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if current.OwnerID != a.OwnerID {
		return ledger.Account{}, errs.ErrForbidden
	}
	if !strings.EqualFold(current.Currency, a.Currency) {
		return ledger.Account{}, errs.ErrImmutable
	}
	if err := a.Metadata.Validate(); err != nil {
		return ledger.Account{}, err
	}
	if a.Type != current.Type {
		if _, err := s.typeByName(ctx, a.Type); err != nil {
			return ledger.Account{}, errors.New("unknown account type: " + a.Type)
		}
	}
	// Preserve derived/identity fields regardless of what the caller sent.
	a.Currency = current.Currency
	a.InitialBalance = current.InitialBalance
	a.Balance = current.Balance
	a.SharedWith = current.SharedWith
	return s.writer.UpdateAccount(ctx, a)
}

// Deactivate sets Active=false (soft delete). Transactions remain; balances of
// inactive accounts are simply no longer displayed.
func (s *service) Deactivate(ctx context.Context, ownerID, accountID uuid.UUID) error {
	if ownerID == uuid.Nil || accountID == uuid.Nil {
		return errs.ErrInvalid
	}
	acc, err := s.repo.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return err
	}
	if acc.OwnerID != ownerID {
		return errs.ErrForbidden
	}
	acc.Active = false
	_, err = s.writer.UpdateAccount(ctx, acc)
	return err
}

// Share adds a collaborator to the account's shared set. Only the owner may
// share, and sharing is idempotent.
func (s *service) Share(ctx context.Context, ownerID, accountID, collaboratorID uuid.UUID) (ledger.Account, error) {
	if ownerID == uuid.Nil || accountID == uuid.Nil || collaboratorID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	if collaboratorID == ownerID {
		return ledger.Account{}, errors.New("cannot share an account with its owner")
	}
	acc, err := s.repo.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if acc.OwnerID != ownerID {
		return ledger.Account{}, errs.ErrForbidden
	}
	if acc.SharedWithUser(collaboratorID) {
		return acc, nil
	}
	acc.SharedWith = append(acc.SharedWith, collaboratorID)
	return s.writer.UpdateAccount(ctx, acc)
}

// Unshare removes a collaborator. Removing an absent collaborator is a no-op.
func (s *service) Unshare(ctx context.Context, ownerID, accountID, collaboratorID uuid.UUID) (ledger.Account, error) {
	if ownerID == uuid.Nil || accountID == uuid.Nil || collaboratorID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	acc, err := s.repo.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if acc.OwnerID != ownerID {
		return ledger.Account{}, errs.ErrForbidden
	}
	kept := acc.SharedWith[:0]
	for _, id := range acc.SharedWith {
		if id != collaboratorID {
			kept = append(kept, id)
		}
	}
	acc.SharedWith = kept
	return s.writer.UpdateAccount(ctx, acc)
}

func (s *service) ListTypes(ctx context.Context) ([]ledger.AccountType, error) {
	return s.repo.ListAccountTypes(ctx)
}

// CreateCustomType registers a user-defined account type. Names are slugified
// and must not collide with built-ins or other types.
func (s *service) CreateCustomType(ctx context.Context, t ledger.AccountType) (ledger.AccountType, error) {
	if t.OwnerID == uuid.Nil {
		return ledger.AccountType{}, errs.ErrInvalid
	}
	t.Name = slug.Slugify(t.Name)
	if !slug.IsSlug(t.Name) {
		return ledger.AccountType{}, errors.New("invalid type name")
	}
	switch t.Category {
	case ledger.TypeCategoryAsset, ledger.TypeCategoryLiability:
	default:
		return ledger.AccountType{}, errors.New("type category must be asset or liability")
	}
	switch t.DefaultSign {
	case ledger.SignPositive, ledger.SignNegative:
	default:
		return ledger.AccountType{}, errors.New("default_sign must be positive or negative")
	}
	if _, err := s.typeByName(ctx, t.Name); err == nil {
		return ledger.AccountType{}, ErrNameExists
	}
	t.IsCustom = true
	return s.writer.CreateAccountType(ctx, t)
}

// DeleteCustomType removes a user-defined type. Built-ins are immutable and a
// type still referenced by any of the owner's accounts is in use.
func (s *service) DeleteCustomType(ctx context.Context, ownerID uuid.UUID, name string) error {
	if ownerID == uuid.Nil || name == "" {
		return errs.ErrInvalid
	}
	t, err := s.typeByName(ctx, name)
	if err != nil {
		return err
	}
	if !t.IsCustom {
		return errs.ErrImmutable
	}
	if t.OwnerID != ownerID {
		return errs.ErrForbidden
	}
	accs, err := s.repo.ListAccounts(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, a := range accs {
		if strings.EqualFold(a.Type, t.Name) {
			return errs.ErrInUse
		}
	}
	return s.writer.DeleteAccountType(ctx, t.Name)
}

func (s *service) typeByName(ctx context.Context, name string) (ledger.AccountType, error) {
	types, err := s.repo.ListAccountTypes(ctx)
	if err != nil {
		return ledger.AccountType{}, err
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return ledger.AccountType{}, errs.ErrNotFound
}
