package split

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/raragao87/opheliahub/internal/errs"
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

type fixture struct {
	store *memory.Store
	svc   Service
	owner uuid.UUID
	acc   ledger.Account
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	owner := uuid.New()
	acc := ledger.Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           "Card",
		Type:           "credit-card",
		DefaultSign:    ledger.SignNegative,
		InitialBalance: eur(t, 0),
		Balance:        eur(t, 0),
		Currency:       "EUR",
		Category:       ledger.AccountCategoryPersonal,
		Kind:           ledger.AccountKindBank,
		Active:         true,
	}
	if _, err := store.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return &fixture{store: store, svc: New(store, store, locker.New()), owner: owner, acc: acc}
}

func (f *fixture) transaction(t *testing.T, minor int64) ledger.Transaction {
	t.Helper()
	tx := ledger.Transaction{
		ID:          uuid.New(),
		AccountID:   f.acc.ID,
		OwnerID:     f.owner,
		Amount:      eur(t, minor),
		Description: "bill",
		Date:        time.Now().UTC(),
		Source:      ledger.SourceManual,
	}
	if _, err := f.store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func TestSplitMergeRoundTrip(t *testing.T) {
	f := setup(t)
	tx := f.transaction(t, -9000)

	specs := []Spec{
		{Amount: eur(t, -3000), Description: "rent"},
		{Amount: eur(t, -6000), Description: "utilities"},
	}
	splits, err := f.svc.Split(context.Background(), f.owner, tx.ID, specs)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("splits = %d, want 2", len(splits))
	}

	// Splitting again before merging must fail.
	if _, err := f.svc.Split(context.Background(), f.owner, tx.ID, specs); !errors.Is(err, errs.ErrAlreadySplit) {
		t.Fatalf("re-split err = %v, want ErrAlreadySplit", err)
	}

	if err := f.svc.Merge(context.Background(), f.owner, tx.ID); err != nil {
		t.Fatalf("merge: %v", err)
	}
	restored, err := f.store.GetTransaction(context.Background(), f.owner, tx.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if restored.IsSplit {
		t.Fatal("transaction still marked split after merge")
	}
	if got := ledger.MinorUnits(restored.Amount); got != -9000 {
		t.Fatalf("amount = %d, want -9000", got)
	}
	left, err := f.svc.Splits(context.Background(), f.owner, tx.ID)
	if err != nil {
		t.Fatalf("splits: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("splits remaining = %d, want 0", len(left))
	}
}

func TestSplit_SumMismatchReportsRemaining(t *testing.T) {
	f := setup(t)
	tx := f.transaction(t, -10000)

	specs := []Spec{
		{Amount: eur(t, -4000), Description: "a"},
		{Amount: eur(t, -5000), Description: "b"},
	}
	_, err := f.svc.Split(context.Background(), f.owner, tx.ID, specs)
	if err == nil {
		t.Fatal("split should fail on sum mismatch")
	}
	var mismatch *SumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %T, want *SumMismatchError", err)
	}
	if mismatch.RemainingMinor != -1000 {
		t.Fatalf("remaining = %d, want -1000", mismatch.RemainingMinor)
	}
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatal("mismatch should match ErrInvalid")
	}
	// Nothing was persisted.
	got, _ := f.store.GetTransaction(context.Background(), f.owner, tx.ID)
	if got.IsSplit {
		t.Fatal("failed split must not mark the transaction")
	}
}

func TestSplit_SingleSpecCoveringWholeAmount(t *testing.T) {
	f := setup(t)
	tx := f.transaction(t, -4200)

	splits, err := f.svc.Split(context.Background(), f.owner, tx.ID, []Spec{
		{Amount: eur(t, -4200), Description: "detailed note"},
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(splits) != 1 {
		t.Fatalf("splits = %d, want 1", len(splits))
	}
	if got := Percentage(splits[0], tx); got != 100 {
		t.Fatalf("percentage = %v, want 100", got)
	}
}

func TestValidateSpecs_Rules(t *testing.T) {
	f := setup(t)
	parent := ledger.Transaction{Amount: eur(t, -9000)}

	cases := []struct {
		name  string
		specs []Spec
	}{
		{"empty", nil},
		{"zero amount", []Spec{{Amount: eur(t, 0), Description: "x"}, {Amount: eur(t, -9000), Description: "y"}}},
		{"wrong direction", []Spec{{Amount: eur(t, 9000), Description: "x"}}},
		{"missing description", []Spec{{Amount: eur(t, -9000), Description: ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := f.svc.ValidateSpecs(parent, tc.specs); !errors.Is(err, errs.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestMerge_NotSplit(t *testing.T) {
	f := setup(t)
	tx := f.transaction(t, -100)
	if err := f.svc.Merge(context.Background(), f.owner, tx.ID); !errors.Is(err, errs.ErrNotSplit) {
		t.Fatalf("err = %v, want ErrNotSplit", err)
	}
}

func TestSplit_TagUsageCounted(t *testing.T) {
	f := setup(t)
	tag := ledger.Tag{ID: uuid.New(), OwnerID: f.owner, Name: "Rent", Level: ledger.LevelCategory}
	if _, err := f.store.CreateTag(context.Background(), tag); err != nil {
		t.Fatalf("seed tag: %v", err)
	}
	tx := f.transaction(t, -9000)

	_, err := f.svc.Split(context.Background(), f.owner, tx.ID, []Spec{
		{Amount: eur(t, -3000), Description: "rent", TagIDs: []uuid.UUID{tag.ID}},
		{Amount: eur(t, -6000), Description: "utilities"},
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	got, _ := f.store.GetTag(context.Background(), f.owner, tag.ID)
	if got.UsageCount != 1 {
		t.Fatalf("usage = %d, want 1", got.UsageCount)
	}

	if err := f.svc.Merge(context.Background(), f.owner, tx.ID); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, _ = f.store.GetTag(context.Background(), f.owner, tag.ID)
	if got.UsageCount != 0 {
		t.Fatalf("usage after merge = %d, want 0", got.UsageCount)
	}
}
