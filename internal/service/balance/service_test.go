package balance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/locker"
	"github.com/raragao87/opheliahub/internal/storage/memory"
)

func eur(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("EUR", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func seedAccount(t *testing.T, store *memory.Store, owner uuid.UUID, initialMinor int64) ledger.Account {
	t.Helper()
	acc := ledger.Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           "Checking",
		Type:           "checking",
		DefaultSign:    ledger.SignPositive,
		InitialBalance: eur(t, initialMinor),
		Balance:        eur(t, initialMinor),
		Currency:       "EUR",
		Category:       ledger.AccountCategoryPersonal,
		Kind:           ledger.AccountKindBank,
		Active:         true,
	}
	if _, err := store.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func seedTx(t *testing.T, store *memory.Store, acc ledger.Account, minor int64) ledger.Transaction {
	t.Helper()
	tx := ledger.Transaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		OwnerID:     acc.OwnerID,
		Amount:      eur(t, minor),
		Description: "tx",
		Date:        time.Now().UTC(),
		Source:      ledger.SourceManual,
	}
	if _, err := store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func TestRecalculate_SumsInitialPlusTransactions(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, store, locker.New())
	owner := uuid.New()
	acc := seedAccount(t, store, owner, 10000)
	seedTx(t, store, acc, -2500)
	seedTx(t, store, acc, 4000)

	bal, err := svc.Recalculate(context.Background(), owner, acc.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if got := ledger.MinorUnits(bal); got != 11500 {
		t.Fatalf("balance = %d, want 11500", got)
	}
}

func TestRecalculate_SplitsDoNotChangeTotal(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, store, locker.New())
	owner := uuid.New()
	acc := seedAccount(t, store, owner, 0)
	tx := seedTx(t, store, acc, -9000)

	splits := []ledger.TransactionSplit{
		{ID: uuid.New(), TransactionID: tx.ID, Amount: eur(t, -3000), Description: "rent"},
		{ID: uuid.New(), TransactionID: tx.ID, Amount: eur(t, -6000), Description: "utilities"},
	}
	if err := store.SplitTransaction(context.Background(), owner, tx.ID, splits); err != nil {
		t.Fatalf("split: %v", err)
	}

	bal, err := svc.Recalculate(context.Background(), owner, acc.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if got := ledger.MinorUnits(bal); got != -9000 {
		t.Fatalf("balance = %d, want -9000 (splits are categorization only)", got)
	}
}

func TestForceUpdate_PersistsAndIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, store, locker.New())
	owner := uuid.New()
	acc := seedAccount(t, store, owner, 5000)
	seedTx(t, store, acc, -1000)

	for i := 0; i < 2; i++ {
		bal, err := svc.ForceUpdate(context.Background(), owner, acc.ID)
		if err != nil {
			t.Fatalf("force update #%d: %v", i, err)
		}
		if got := ledger.MinorUnits(bal); got != 4000 {
			t.Fatalf("balance = %d, want 4000", got)
		}
	}
	stored, err := store.GetAccount(context.Background(), owner, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got := ledger.MinorUnits(stored.Balance); got != 4000 {
		t.Fatalf("stored balance = %d, want 4000", got)
	}
}
