// Package memory provides an in-memory store used for development and tests.
// All methods are safe for concurrent use; a single RWMutex guards the maps and
// the per-account transaction index.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/catalog"
	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
)

// Store keeps all ledger state in process memory.
type Store struct {
	mu sync.RWMutex

	accounts     map[uuid.UUID]ledger.Account
	accountTypes map[string]ledger.AccountType
	transactions map[uuid.UUID]ledger.Transaction
	// txByAccount holds transaction ids per account, ordered by date descending.
	txByAccount map[uuid.UUID][]uuid.UUID
	splits      map[uuid.UUID]ledger.TransactionSplit
	splitsByTx  map[uuid.UUID][]uuid.UUID
	tags        map[uuid.UUID]ledger.Tag
	budgets     map[uuid.UUID]ledger.Budget
	budgetItems map[uuid.UUID]ledger.BudgetItem
	links       map[uuid.UUID]ledger.TransactionLink
}

// NewStore returns an empty store seeded with the built-in account types.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

// Reset clears all state and re-seeds the built-in account types.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Store) reset() {
	s.accounts = make(map[uuid.UUID]ledger.Account)
	s.accountTypes = make(map[string]ledger.AccountType)
	s.transactions = make(map[uuid.UUID]ledger.Transaction)
	s.txByAccount = make(map[uuid.UUID][]uuid.UUID)
	s.splits = make(map[uuid.UUID]ledger.TransactionSplit)
	s.splitsByTx = make(map[uuid.UUID][]uuid.UUID)
	s.tags = make(map[uuid.UUID]ledger.Tag)
	s.budgets = make(map[uuid.UUID]ledger.Budget)
	s.budgetItems = make(map[uuid.UUID]ledger.BudgetItem)
	s.links = make(map[uuid.UUID]ledger.TransactionLink)
	for _, t := range catalog.BuiltinAccountTypes() {
		s.accountTypes[strings.ToLower(t.Name)] = t
	}
}

// Accounts

func (s *Store) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if a.AccessibleBy(ownerID) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAccountLocked(userID, accountID)
}

func (s *Store) getAccountLocked(userID, accountID uuid.UUID) (ledger.Account, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	if !a.AccessibleBy(userID) {
		return ledger.Account{}, errs.ErrForbidden
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return ledger.Account{}, errs.ErrConflict
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, userID, accountID uuid.UUID, balance money.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getAccountLocked(userID, accountID)
	if err != nil {
		return err
	}
	a.Balance = balance
	s.accounts[accountID] = a
	return nil
}

// Account types

func (s *Store) ListAccountTypes(ctx context.Context) ([]ledger.AccountType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.AccountType, 0, len(s.accountTypes))
	for _, t := range s.accountTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateAccountType(ctx context.Context, t ledger.AccountType) (ledger.AccountType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(t.Name)
	if _, ok := s.accountTypes[key]; ok {
		return ledger.AccountType{}, errs.ErrConflict
	}
	s.accountTypes[key] = t
	return t, nil
}

func (s *Store) DeleteAccountType(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := s.accountTypes[key]; !ok {
		return errs.ErrNotFound
	}
	delete(s.accountTypes, key)
	return nil
}

// Transactions

func (s *Store) GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransactionLocked(userID, txID)
}

func (s *Store) getTransactionLocked(userID, txID uuid.UUID) (ledger.Transaction, error) {
	tx, ok := s.transactions[txID]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if _, err := s.getAccountLocked(userID, tx.AccountID); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) TransactionsByAccount(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.getAccountLocked(userID, accountID); err != nil {
		return nil, err
	}
	ids := s.txByAccount[accountID]
	out := make([]ledger.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.transactions[id])
	}
	return out, nil
}

func (s *Store) TransactionsInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		d := tx.Date.UTC()
		if d.Before(from) || !d.Before(to) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; ok {
		return ledger.Transaction{}, errs.ErrConflict
	}
	s.transactions[tx.ID] = tx
	s.insertTxIndexLocked(tx)
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.transactions[tx.ID]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	s.transactions[tx.ID] = tx
	if !old.Date.Equal(tx.Date) {
		s.removeTxIndexLocked(old)
		s.insertTxIndexLocked(tx)
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.getTransactionLocked(userID, txID)
	if err != nil {
		return err
	}
	for _, id := range s.splitsByTx[txID] {
		delete(s.splits, id)
	}
	delete(s.splitsByTx, txID)
	for id, l := range s.links {
		if l.AID == txID || l.BID == txID {
			delete(s.links, id)
		}
	}
	s.removeTxIndexLocked(tx)
	delete(s.transactions, txID)
	return nil
}

// insertTxIndexLocked places the id in the account's index keeping date
// descending order; equal dates keep insertion order.
func (s *Store) insertTxIndexLocked(tx ledger.Transaction) {
	ids := s.txByAccount[tx.AccountID]
	pos := sort.Search(len(ids), func(i int) bool {
		return s.transactions[ids[i]].Date.Before(tx.Date)
	})
	ids = append(ids, uuid.Nil)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = tx.ID
	s.txByAccount[tx.AccountID] = ids
}

func (s *Store) removeTxIndexLocked(tx ledger.Transaction) {
	ids := s.txByAccount[tx.AccountID]
	for i, id := range ids {
		if id == tx.ID {
			s.txByAccount[tx.AccountID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// Splits

func (s *Store) SplitsByTransaction(ctx context.Context, txID uuid.UUID) ([]ledger.TransactionSplit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.splitsByTx[txID]
	out := make([]ledger.TransactionSplit, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.splits[id])
	}
	return out, nil
}

func (s *Store) GetSplit(ctx context.Context, userID, splitID uuid.UUID) (ledger.TransactionSplit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.splits[splitID]
	if !ok {
		return ledger.TransactionSplit{}, errs.ErrNotFound
	}
	if _, err := s.getTransactionLocked(userID, sp.TransactionID); err != nil {
		return ledger.TransactionSplit{}, err
	}
	return sp, nil
}

// SplitTransaction stores the splits and flips the parent's flag in one
// critical section.
func (s *Store) SplitTransaction(ctx context.Context, userID, txID uuid.UUID, splits []ledger.TransactionSplit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.getTransactionLocked(userID, txID)
	if err != nil {
		return err
	}
	if tx.IsSplit {
		return errs.ErrAlreadySplit
	}
	ids := make([]uuid.UUID, 0, len(splits))
	for _, sp := range splits {
		s.splits[sp.ID] = sp
		ids = append(ids, sp.ID)
	}
	s.splitsByTx[txID] = ids
	tx.IsSplit = true
	s.transactions[txID] = tx
	return nil
}

func (s *Store) UpdateSplit(ctx context.Context, sp ledger.TransactionSplit) (ledger.TransactionSplit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.splits[sp.ID]; !ok {
		return ledger.TransactionSplit{}, errs.ErrNotFound
	}
	s.splits[sp.ID] = sp
	return sp, nil
}

// MergeTransaction deletes all splits and clears the parent's flag in one
// critical section.
func (s *Store) MergeTransaction(ctx context.Context, userID, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.getTransactionLocked(userID, txID)
	if err != nil {
		return err
	}
	if !tx.IsSplit {
		return errs.ErrNotSplit
	}
	for _, id := range s.splitsByTx[txID] {
		delete(s.splits, id)
	}
	delete(s.splitsByTx, txID)
	tx.IsSplit = false
	s.transactions[txID] = tx
	return nil
}

// Tags

func (s *Store) ListTags(ctx context.Context, userID uuid.UUID) ([]ledger.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Tag, 0)
	for _, t := range s.tags {
		if t.IsDefault || (userID != uuid.Nil && t.OwnerID == userID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetTag(ctx context.Context, userID, tagID uuid.UUID) (ledger.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tags[tagID]
	if !ok {
		return ledger.Tag{}, errs.ErrNotFound
	}
	if !t.IsDefault && t.OwnerID != userID {
		return ledger.Tag{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) TagsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Tag, len(ids))
	for _, id := range ids {
		t, ok := s.tags[id]
		if !ok {
			continue
		}
		if t.IsDefault || t.OwnerID == userID {
			out[id] = t
		}
	}
	return out, nil
}

func (s *Store) CreateTag(ctx context.Context, t ledger.Tag) (ledger.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[t.ID]; ok {
		return ledger.Tag{}, errs.ErrConflict
	}
	s.tags[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTag(ctx context.Context, t ledger.Tag) (ledger.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tags[t.ID]
	if !ok {
		return ledger.Tag{}, errs.ErrNotFound
	}
	// Usage counts are adjusted only through AdjustTagUsage.
	t.UsageCount = current.UsageCount
	s.tags[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTags(ctx context.Context, tags []ledger.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tags {
		if _, ok := s.tags[t.ID]; !ok {
			return errs.ErrNotFound
		}
	}
	for _, t := range tags {
		current := s.tags[t.ID]
		t.UsageCount = current.UsageCount
		s.tags[t.ID] = t
	}
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, userID, tagID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[tagID]
	if !ok {
		return errs.ErrNotFound
	}
	if !t.IsDefault && t.OwnerID != userID {
		return errs.ErrNotFound
	}
	delete(s.tags, tagID)
	return nil
}

// AdjustTagUsage applies the deltas, flooring each counter at zero. Unknown
// tags are skipped; a decrement racing a tag deletion is not an error.
func (s *Store) AdjustTagUsage(ctx context.Context, deltas map[uuid.UUID]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range deltas {
		t, ok := s.tags[id]
		if !ok {
			continue
		}
		t.UsageCount += d
		if t.UsageCount < 0 {
			t.UsageCount = 0
		}
		s.tags[id] = t
	}
	return nil
}

// Budgets

func (s *Store) GetBudget(ctx context.Context, ownerID, budgetID uuid.UUID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[budgetID]
	if !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	if b.OwnerID != ownerID {
		return ledger.Budget{}, errs.ErrForbidden
	}
	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, ownerID uuid.UUID) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Budget, 0)
	for _, b := range s.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *Store) CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; ok {
		return ledger.Budget{}, errs.ErrConflict
	}
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) ItemsByBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.BudgetItem, 0)
	for _, it := range s.budgetItems {
		if it.BudgetID == budgetID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) GetBudgetItem(ctx context.Context, itemID uuid.UUID) (ledger.BudgetItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.budgetItems[itemID]
	if !ok {
		return ledger.BudgetItem{}, errs.ErrNotFound
	}
	return it, nil
}

func (s *Store) CreateBudgetItem(ctx context.Context, it ledger.BudgetItem) (ledger.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgetItems[it.ID]; ok {
		return ledger.BudgetItem{}, errs.ErrConflict
	}
	s.budgetItems[it.ID] = it
	return it, nil
}

func (s *Store) UpdateBudgetItem(ctx context.Context, it ledger.BudgetItem) (ledger.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgetItems[it.ID]; !ok {
		return ledger.BudgetItem{}, errs.ErrNotFound
	}
	s.budgetItems[it.ID] = it
	return it, nil
}

func (s *Store) DeleteBudgetItem(ctx context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgetItems[itemID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.budgetItems, itemID)
	return nil
}

// Links

func (s *Store) CreateTransactionLink(ctx context.Context, l ledger.TransactionLink) (ledger.TransactionLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[l.ID]; ok {
		return ledger.TransactionLink{}, errs.ErrConflict
	}
	s.links[l.ID] = l
	return l, nil
}

func (s *Store) GetTransactionLink(ctx context.Context, linkID uuid.UUID) (ledger.TransactionLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[linkID]
	if !ok {
		return ledger.TransactionLink{}, errs.ErrNotFound
	}
	return l, nil
}

func (s *Store) DeleteTransactionLink(ctx context.Context, linkID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[linkID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.links, linkID)
	return nil
}
