package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// It maps domain entities to SQL rows and keeps multi-row state transitions
// (split, merge) inside database transactions. The schema lives under
// migrations/ and is applied by RunMigrations.

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/meta"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedBuiltinTypes inserts the built-in account types. Existing rows are left
// untouched, so calling it on every start is safe.
func (s *Store) SeedBuiltinTypes(ctx context.Context, types []ledger.AccountType) error {
	for _, t := range types {
		if _, err := s.pool.Exec(ctx, `
			insert into account_types (name, category, default_sign, is_custom, owner_id)
			values ($1,$2,$3,false,null)
			on conflict (name) do nothing
		`, strings.ToLower(t.Name), t.Category, t.DefaultSign); err != nil {
			return err
		}
	}
	return nil
}

// --- Accounts ---

const accountCols = `id, owner_id, name, type, default_sign, initial_balance_minor, balance_minor, currency, category, kind, shared_with, metadata, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var initialMinor, balanceMinor int64
	var mdBytes []byte
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.DefaultSign, &initialMinor, &balanceMinor, &a.Currency, &a.Category, &a.Kind, &a.SharedWith, &mdBytes, &a.Active)
	if err != nil {
		return ledger.Account{}, err
	}
	a.InitialBalance, _ = money.NewAmountFromMinorUnits(a.Currency, initialMinor)
	a.Balance, _ = money.NewAmountFromMinorUnits(a.Currency, balanceMinor)
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			a.Metadata = m
		}
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
		select `+accountCols+`
		from accounts
		where owner_id = $1 or $1 = any(shared_with)
		order by name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountCols+` from accounts where id = $1
	`, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Account{}, err
	}
	if !a.AccessibleBy(userID) {
		return ledger.Account{}, errs.ErrForbidden
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	md, _ := a.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into accounts (`+accountCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, a.ID, a.OwnerID, a.Name, a.Type, a.DefaultSign, ledger.MinorUnits(a.InitialBalance), ledger.MinorUnits(a.Balance), strings.ToUpper(a.Currency), a.Category, a.Kind, a.SharedWith, md, a.Active)
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	md, _ := a.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set name=$1, type=$2, default_sign=$3, category=$4, kind=$5, shared_with=$6, metadata=$7, active=$8
		where id=$9 and owner_id=$10
	`, a.Name, a.Type, a.DefaultSign, a.Category, a.Kind, a.SharedWith, md, a.Active, a.ID, a.OwnerID)
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, userID, accountID uuid.UUID, balance money.Amount) error {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx, `
		update accounts set balance_minor=$1 where id=$2
	`, ledger.MinorUnits(balance), accountID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Account types ---

func (s *Store) ListAccountTypes(ctx context.Context) ([]ledger.AccountType, error) {
	rows, err := s.pool.Query(ctx, `
		select name, category, default_sign, is_custom, coalesce(owner_id, '00000000-0000-0000-0000-000000000000')
		from account_types
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.AccountType, 0)
	for rows.Next() {
		var t ledger.AccountType
		if err := rows.Scan(&t.Name, &t.Category, &t.DefaultSign, &t.IsCustom, &t.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateAccountType(ctx context.Context, t ledger.AccountType) (ledger.AccountType, error) {
	var owner any
	if t.OwnerID != uuid.Nil {
		owner = t.OwnerID
	}
	_, err := s.pool.Exec(ctx, `
		insert into account_types (name, category, default_sign, is_custom, owner_id)
		values ($1,$2,$3,$4,$5)
	`, strings.ToLower(t.Name), t.Category, t.DefaultSign, t.IsCustom, owner)
	if err != nil {
		return ledger.AccountType{}, err
	}
	return t, nil
}

func (s *Store) DeleteAccountType(ctx context.Context, name string) error {
	ct, err := s.pool.Exec(ctx, `delete from account_types where name = lower($1)`, name)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Transactions ---

const txCols = `id, account_id, owner_id, amount_minor, currency, description, date, source, tag_ids, is_split, metadata`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var tx ledger.Transaction
	var minor int64
	var currency string
	var mdBytes []byte
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.OwnerID, &minor, &currency, &tx.Description, &tx.Date, &tx.Source, &tx.TagIDs, &tx.IsSplit, &mdBytes)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx.Amount, _ = money.NewAmountFromMinorUnits(currency, minor)
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			tx.Metadata = m
		}
	}
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
	tx, err := scanTransaction(s.pool.QueryRow(ctx, `
		select `+txCols+` from transactions where id = $1
	`, txID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := s.GetAccount(ctx, userID, tx.AccountID); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) TransactionsByAccount(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.Transaction, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		select `+txCols+`
		from transactions
		where account_id = $1
		order by date desc, id
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) TransactionsInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+txCols+`
		from transactions
		where owner_id = $1 and date >= $2 and date < $3
		order by date desc, id
	`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	md, _ := tx.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into transactions (`+txCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, tx.ID, tx.AccountID, tx.OwnerID, ledger.MinorUnits(tx.Amount), tx.Amount.Curr().Code(), tx.Description, tx.Date, tx.Source, tx.TagIDs, tx.IsSplit, md)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	md, _ := tx.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update transactions
		set amount_minor=$1, description=$2, date=$3, tag_ids=$4, metadata=$5
		where id=$6
	`, ledger.MinorUnits(tx.Amount), tx.Description, tx.Date, tx.TagIDs, md, tx.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return tx, nil
}

// DeleteTransaction removes the transaction; splits and links cascade via
// foreign keys.
func (s *Store) DeleteTransaction(ctx context.Context, userID, txID uuid.UUID) error {
	if _, err := s.GetTransaction(ctx, userID, txID); err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx, `delete from transactions where id = $1`, txID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Splits ---

func (s *Store) SplitsByTransaction(ctx context.Context, txID uuid.UUID) ([]ledger.TransactionSplit, error) {
	rows, err := s.pool.Query(ctx, `
		select sp.id, sp.transaction_id, sp.amount_minor, t.currency, sp.description, sp.tag_ids
		from transaction_splits sp
		join transactions t on t.id = sp.transaction_id
		where sp.transaction_id = $1
		order by sp.id
	`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.TransactionSplit, 0)
	for rows.Next() {
		var sp ledger.TransactionSplit
		var minor int64
		var currency string
		if err := rows.Scan(&sp.ID, &sp.TransactionID, &minor, &currency, &sp.Description, &sp.TagIDs); err != nil {
			return nil, err
		}
		sp.Amount, _ = money.NewAmountFromMinorUnits(currency, minor)
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) GetSplit(ctx context.Context, userID, splitID uuid.UUID) (ledger.TransactionSplit, error) {
	var sp ledger.TransactionSplit
	var minor int64
	var currency string
	err := s.pool.QueryRow(ctx, `
		select sp.id, sp.transaction_id, sp.amount_minor, t.currency, sp.description, sp.tag_ids
		from transaction_splits sp
		join transactions t on t.id = sp.transaction_id
		where sp.id = $1
	`, splitID).Scan(&sp.ID, &sp.TransactionID, &minor, &currency, &sp.Description, &sp.TagIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.TransactionSplit{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.TransactionSplit{}, err
	}
	if _, err := s.GetTransaction(ctx, userID, sp.TransactionID); err != nil {
		return ledger.TransactionSplit{}, err
	}
	sp.Amount, _ = money.NewAmountFromMinorUnits(currency, minor)
	return sp, nil
}

// SplitTransaction inserts the split rows and flips the parent's flag in one
// database transaction.
func (s *Store) SplitTransaction(ctx context.Context, userID, txID uuid.UUID, splits []ledger.TransactionSplit) error {
	parent, err := s.GetTransaction(ctx, userID, txID)
	if err != nil {
		return err
	}
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	var isSplit bool
	if err := dbtx.QueryRow(ctx, `select is_split from transactions where id = $1 for update`, txID).Scan(&isSplit); err != nil {
		return err
	}
	if isSplit {
		return errs.ErrAlreadySplit
	}
	for _, sp := range splits {
		if _, err := dbtx.Exec(ctx, `
			insert into transaction_splits (id, transaction_id, amount_minor, description, tag_ids)
			values ($1,$2,$3,$4,$5)
		`, sp.ID, parent.ID, ledger.MinorUnits(sp.Amount), sp.Description, sp.TagIDs); err != nil {
			return err
		}
	}
	if _, err := dbtx.Exec(ctx, `update transactions set is_split = true where id = $1`, txID); err != nil {
		return err
	}
	return dbtx.Commit(ctx)
}

func (s *Store) UpdateSplit(ctx context.Context, sp ledger.TransactionSplit) (ledger.TransactionSplit, error) {
	ct, err := s.pool.Exec(ctx, `
		update transaction_splits
		set amount_minor=$1, description=$2, tag_ids=$3
		where id=$4
	`, ledger.MinorUnits(sp.Amount), sp.Description, sp.TagIDs, sp.ID)
	if err != nil {
		return ledger.TransactionSplit{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.TransactionSplit{}, errs.ErrNotFound
	}
	return sp, nil
}

// MergeTransaction deletes the split rows and clears the parent's flag in one
// database transaction.
func (s *Store) MergeTransaction(ctx context.Context, userID, txID uuid.UUID) error {
	if _, err := s.GetTransaction(ctx, userID, txID); err != nil {
		return err
	}
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	var isSplit bool
	if err := dbtx.QueryRow(ctx, `select is_split from transactions where id = $1 for update`, txID).Scan(&isSplit); err != nil {
		return err
	}
	if !isSplit {
		return errs.ErrNotSplit
	}
	if _, err := dbtx.Exec(ctx, `delete from transaction_splits where transaction_id = $1`, txID); err != nil {
		return err
	}
	if _, err := dbtx.Exec(ctx, `update transactions set is_split = false where id = $1`, txID); err != nil {
		return err
	}
	return dbtx.Commit(ctx)
}

// --- Tags ---

const tagCols = `id, coalesce(owner_id, '00000000-0000-0000-0000-000000000000'), name, color, level, coalesce(parent_id, '00000000-0000-0000-0000-000000000000'), is_default, usage_count`

func scanTag(row pgx.Row) (ledger.Tag, error) {
	var t ledger.Tag
	err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Color, &t.Level, &t.ParentID, &t.IsDefault, &t.UsageCount)
	return t, err
}

func (s *Store) ListTags(ctx context.Context, userID uuid.UUID) ([]ledger.Tag, error) {
	q := `select ` + tagCols + ` from tags where is_default order by level, name`
	args := []any{}
	if userID != uuid.Nil {
		q = `select ` + tagCols + ` from tags where is_default or owner_id = $1 order by level, name`
		args = append(args, userID)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTag(ctx context.Context, userID, tagID uuid.UUID) (ledger.Tag, error) {
	t, err := scanTag(s.pool.QueryRow(ctx, `
		select `+tagCols+` from tags where id = $1 and (is_default or owner_id = $2)
	`, tagID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Tag{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Tag{}, err
	}
	return t, nil
}

func (s *Store) TagsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Tag, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ledger.Tag{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		select `+tagCols+` from tags where id = any($1) and (is_default or owner_id = $2)
	`, ids, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]ledger.Tag)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out[t.ID] = t
	}
	return out, rows.Err()
}

func (s *Store) CreateTag(ctx context.Context, t ledger.Tag) (ledger.Tag, error) {
	_, err := s.pool.Exec(ctx, `
		insert into tags (id, owner_id, name, color, level, parent_id, is_default, usage_count)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, t.ID, nullableUUID(t.OwnerID), t.Name, t.Color, t.Level, nullableUUID(t.ParentID), t.IsDefault, t.UsageCount)
	if err != nil {
		return ledger.Tag{}, err
	}
	return t, nil
}

func (s *Store) UpdateTag(ctx context.Context, t ledger.Tag) (ledger.Tag, error) {
	ct, err := s.pool.Exec(ctx, `
		update tags set name=$1, color=$2, level=$3, parent_id=$4 where id=$5
	`, t.Name, t.Color, t.Level, nullableUUID(t.ParentID), t.ID)
	if err != nil {
		return ledger.Tag{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Tag{}, errs.ErrNotFound
	}
	return t, nil
}

// UpdateTags applies the batch inside one database transaction.
func (s *Store) UpdateTags(ctx context.Context, tags []ledger.Tag) error {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()
	for _, t := range tags {
		ct, err := dbtx.Exec(ctx, `
			update tags set name=$1, color=$2, level=$3, parent_id=$4 where id=$5
		`, t.Name, t.Color, t.Level, nullableUUID(t.ParentID), t.ID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
	}
	return dbtx.Commit(ctx)
}

func (s *Store) DeleteTag(ctx context.Context, userID, tagID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `
		delete from tags where id = $1 and (is_default or owner_id = $2)
	`, tagID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AdjustTagUsage applies the deltas, flooring each counter at zero.
func (s *Store) AdjustTagUsage(ctx context.Context, deltas map[uuid.UUID]int) error {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()
	for id, d := range deltas {
		if _, err := dbtx.Exec(ctx, `
			update tags set usage_count = greatest(usage_count + $1, 0) where id = $2
		`, d, id); err != nil {
			return err
		}
	}
	return dbtx.Commit(ctx)
}

// --- Budgets ---

func (s *Store) GetBudget(ctx context.Context, ownerID, budgetID uuid.UUID) (ledger.Budget, error) {
	var b ledger.Budget
	var month int
	err := s.pool.QueryRow(ctx, `
		select id, owner_id, name, month, year, is_active from budgets where id = $1
	`, budgetID).Scan(&b.ID, &b.OwnerID, &b.Name, &month, &b.Year, &b.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Budget{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Budget{}, err
	}
	if b.OwnerID != ownerID {
		return ledger.Budget{}, errs.ErrForbidden
	}
	b.Month = time.Month(month)
	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, ownerID uuid.UUID) ([]ledger.Budget, error) {
	rows, err := s.pool.Query(ctx, `
		select id, owner_id, name, month, year, is_active
		from budgets
		where owner_id = $1
		order by year desc, month desc
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Budget, 0)
	for rows.Next() {
		var b ledger.Budget
		var month int
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &month, &b.Year, &b.IsActive); err != nil {
			return nil, err
		}
		b.Month = time.Month(month)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	_, err := s.pool.Exec(ctx, `
		insert into budgets (id, owner_id, name, month, year, is_active)
		values ($1,$2,$3,$4,$5,$6)
	`, b.ID, b.OwnerID, b.Name, int(b.Month), b.Year, b.IsActive)
	if err != nil {
		return ledger.Budget{}, err
	}
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	ct, err := s.pool.Exec(ctx, `
		update budgets set name=$1, month=$2, year=$3, is_active=$4 where id=$5
	`, b.Name, int(b.Month), b.Year, b.IsActive, b.ID)
	if err != nil {
		return ledger.Budget{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

func (s *Store) ItemsByBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error) {
	rows, err := s.pool.Query(ctx, `
		select id, budget_id, category, tag_ids, budgeted_minor, currency
		from budget_items
		where budget_id = $1
		order by category
	`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BudgetItem, 0)
	for rows.Next() {
		it, err := scanBudgetItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanBudgetItem(row pgx.Row) (ledger.BudgetItem, error) {
	var it ledger.BudgetItem
	var minor int64
	var currency string
	if err := row.Scan(&it.ID, &it.BudgetID, &it.Category, &it.TagIDs, &minor, &currency); err != nil {
		return ledger.BudgetItem{}, err
	}
	it.BudgetedAmount, _ = money.NewAmountFromMinorUnits(currency, minor)
	return it, nil
}

func (s *Store) GetBudgetItem(ctx context.Context, itemID uuid.UUID) (ledger.BudgetItem, error) {
	it, err := scanBudgetItem(s.pool.QueryRow(ctx, `
		select id, budget_id, category, tag_ids, budgeted_minor, currency
		from budget_items
		where id = $1
	`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.BudgetItem{}, errs.ErrNotFound
	}
	return it, err
}

func (s *Store) CreateBudgetItem(ctx context.Context, it ledger.BudgetItem) (ledger.BudgetItem, error) {
	_, err := s.pool.Exec(ctx, `
		insert into budget_items (id, budget_id, category, tag_ids, budgeted_minor, currency)
		values ($1,$2,$3,$4,$5,$6)
	`, it.ID, it.BudgetID, it.Category, it.TagIDs, ledger.MinorUnits(it.BudgetedAmount), it.BudgetedAmount.Curr().Code())
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	return it, nil
}

func (s *Store) UpdateBudgetItem(ctx context.Context, it ledger.BudgetItem) (ledger.BudgetItem, error) {
	ct, err := s.pool.Exec(ctx, `
		update budget_items set category=$1, tag_ids=$2, budgeted_minor=$3, currency=$4 where id=$5
	`, it.Category, it.TagIDs, ledger.MinorUnits(it.BudgetedAmount), it.BudgetedAmount.Curr().Code(), it.ID)
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.BudgetItem{}, errs.ErrNotFound
	}
	return it, nil
}

func (s *Store) DeleteBudgetItem(ctx context.Context, itemID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from budget_items where id = $1`, itemID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Links ---

func (s *Store) CreateTransactionLink(ctx context.Context, l ledger.TransactionLink) (ledger.TransactionLink, error) {
	_, err := s.pool.Exec(ctx, `
		insert into transaction_links (id, a_id, b_id, kind)
		values ($1,$2,$3,$4)
	`, l.ID, l.AID, l.BID, l.Kind)
	if err != nil {
		return ledger.TransactionLink{}, err
	}
	return l, nil
}

func (s *Store) GetTransactionLink(ctx context.Context, linkID uuid.UUID) (ledger.TransactionLink, error) {
	var l ledger.TransactionLink
	err := s.pool.QueryRow(ctx, `select id, a_id, b_id, kind from transaction_links where id = $1`, linkID).
		Scan(&l.ID, &l.AID, &l.BID, &l.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.TransactionLink{}, errs.ErrNotFound
		}
		return ledger.TransactionLink{}, err
	}
	return l, nil
}

func (s *Store) DeleteTransactionLink(ctx context.Context, linkID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from transaction_links where id = $1`, linkID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// nullableUUID maps uuid.Nil to SQL null.
func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
