package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = s.pool.Exec(ctx, `truncate table transaction_links, budget_items, budgets, transaction_splits, transactions, tags, account_types, accounts cascade`)
}

func gbp(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("GBP", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func TestStore_AccountsAndTransactions(t *testing.T) {
	dsn := getTestDSN(t)
	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := mustOpen(t, dsn)
	defer s.Close()
	truncateAll(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := uuid.New()
	acc := ledger.Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           "Main Checking",
		Type:           "checking",
		DefaultSign:    ledger.SignPositive,
		InitialBalance: gbp(t, 10000),
		Balance:        gbp(t, 10000),
		Currency:       "GBP",
		Category:       ledger.AccountCategoryPersonal,
		Kind:           ledger.AccountKindBank,
		Active:         true,
	}
	if _, err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	got, err := s.GetAccount(ctx, owner, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if ledger.MinorUnits(got.Balance) != 10000 {
		t.Fatalf("balance = %d, want 10000", ledger.MinorUnits(got.Balance))
	}
	if _, err := s.GetAccount(ctx, uuid.New(), acc.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("foreign access err = %v, want ErrForbidden", err)
	}

	tx := ledger.Transaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		OwnerID:     owner,
		Amount:      gbp(t, -2500),
		Description: "groceries",
		Date:        time.Now().UTC(),
		Source:      ledger.SourceManual,
	}
	if _, err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	list, err := s.TransactionsByAccount(ctx, owner, acc.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(list) != 1 || list[0].ID != tx.ID {
		t.Fatalf("unexpected transaction list: %+v", list)
	}
}

func TestStore_SplitMergeAtomicity(t *testing.T) {
	dsn := getTestDSN(t)
	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := mustOpen(t, dsn)
	defer s.Close()
	truncateAll(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := uuid.New()
	acc := ledger.Account{
		ID: uuid.New(), OwnerID: owner, Name: "Card", Type: "credit-card",
		DefaultSign: ledger.SignNegative, InitialBalance: gbp(t, 0), Balance: gbp(t, 0),
		Currency: "GBP", Category: ledger.AccountCategoryPersonal, Kind: ledger.AccountKindBank, Active: true,
	}
	if _, err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	tx := ledger.Transaction{
		ID: uuid.New(), AccountID: acc.ID, OwnerID: owner,
		Amount: gbp(t, -9000), Description: "bill", Date: time.Now().UTC(), Source: ledger.SourceManual,
	}
	if _, err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	splits := []ledger.TransactionSplit{
		{ID: uuid.New(), TransactionID: tx.ID, Amount: gbp(t, -3000), Description: "rent share"},
		{ID: uuid.New(), TransactionID: tx.ID, Amount: gbp(t, -6000), Description: "utilities"},
	}
	if err := s.SplitTransaction(ctx, owner, tx.ID, splits); err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := s.SplitTransaction(ctx, owner, tx.ID, splits); !errors.Is(err, errs.ErrAlreadySplit) {
		t.Fatalf("re-split err = %v, want ErrAlreadySplit", err)
	}
	got, err := s.GetTransaction(ctx, owner, tx.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if !got.IsSplit {
		t.Fatal("transaction should be marked split")
	}

	if err := s.MergeTransaction(ctx, owner, tx.ID); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.MergeTransaction(ctx, owner, tx.ID); !errors.Is(err, errs.ErrNotSplit) {
		t.Fatalf("re-merge err = %v, want ErrNotSplit", err)
	}
	left, err := s.SplitsByTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("splits: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("splits remaining after merge: %d", len(left))
	}
}

func TestStore_TagUsageFloor(t *testing.T) {
	dsn := getTestDSN(t)
	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := mustOpen(t, dsn)
	defer s.Close()
	truncateAll(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := uuid.New()
	tag := ledger.Tag{ID: uuid.New(), OwnerID: owner, Name: "Groceries", Level: ledger.LevelCategory}
	if _, err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if err := s.AdjustTagUsage(ctx, map[uuid.UUID]int{tag.ID: -3}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	got, err := s.GetTag(ctx, owner, tag.ID)
	if err != nil {
		t.Fatalf("get tag: %v", err)
	}
	if got.UsageCount != 0 {
		t.Fatalf("usage = %d, want 0 (floored)", got.UsageCount)
	}
}
