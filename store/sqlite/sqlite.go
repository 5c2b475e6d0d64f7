/*
Package sqlite provides a SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Persists accounts, ledger entries, categories, budgets and goals in
  SQLite. The same patterns apply to PostgreSQL with minor SQL dialect
  differences.

KEY TABLES:
  accounts:   Balance holders; balance stored as decimal text
  entries:    Ledger entries, soft-deleted via deleted/deleted_at
  categories: System (owner_id = '') and user categories
  budgets:    One per (owner, category); rowid gives record order
  goals:      Savings targets

UNIQUENESS:
  - idx_accounts_owner_name: active account names per owner, NOCASE
  - idx_categories_natural_key: (owner, name NOCASE, kind); makes
    EnsureCategory a race-free get-or-create
  - budgets UNIQUE(owner_id, category_id)

ATOMICITY:
  WithTx runs the unit of work on a single *sql.Tx. Any error rolls the
  whole unit back. The store mutex is held for writing for the duration,
  so balance read-modify-write in AdjustBalance is serialized per store.

CONNECTIONS:
  The pool is capped at one connection. SQLite allows a single writer, and
  ":memory:" databases are per-connection.

TIME STORAGE:
  Times are stored as fixed-width UTC text so that string comparison in
  range scans matches chronological order.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/ledger"
)

// timeLayout is RFC3339 with fixed nanoseconds; always formatted in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_owner
		ON accounts(owner_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_owner_name
		ON accounts(owner_id, name COLLATE NOCASE) WHERE deleted = 0;

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_natural_key
		ON categories(owner_id, name COLLATE NOCASE, kind);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		category_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		division TEXT NOT NULL,
		account_id TEXT,
		linked_entry_id TEXT,
		leg TEXT NOT NULL DEFAULT '',
		deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Period scans (hot path for aggregation)
	CREATE INDEX IF NOT EXISTS idx_entries_owner_date
		ON entries(owner_id, date);
	CREATE INDEX IF NOT EXISTS idx_entries_account
		ON entries(account_id) WHERE account_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_entries_category
		ON entries(owner_id, category_id, date);

	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		period TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(owner_id, category_id)
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target TEXT NOT NULL,
		current TEXT NOT NULL DEFAULT '0',
		deadline TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_goals_owner
		ON goals(owner_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// View executes fn against committed state.
func (s *Store) View(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&queries{q: s.db})
}

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"entries", "budgets", "goals", "accounts", "categories"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ledger.Store on a querier. Locking is done by the
// Store that hands it out.
type queries struct {
	q querier
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = `id, owner_id, name, type, balance, deleted, created_at, updated_at`

func (qs *queries) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	row := qs.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (qs *queries) ListAccounts(ctx context.Context, owner ledger.UserID, includeDeleted bool) ([]ledger.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE owner_id = ?"
	if !includeDeleted {
		query += " AND deleted = 0"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := qs.q.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (qs *queries) FindAccountByName(ctx context.Context, owner ledger.UserID, name string) (*ledger.Account, error) {
	row := qs.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE owner_id = ? AND name = ? COLLATE NOCASE AND deleted = 0",
		owner, name)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (qs *queries) InsertAccount(ctx context.Context, a ledger.Account) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, type, balance, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Type, a.Balance.String(), a.Deleted,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	return wrapWriteError("insert account", err)
}

func (qs *queries) UpdateAccount(ctx context.Context, a ledger.Account) error {
	res, err := qs.q.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, balance = ?, deleted = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, a.Type, a.Balance.String(), a.Deleted, formatTime(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return wrapWriteError("update account", err)
	}
	return requireOneRow(res, "account", string(a.ID))
}

// AdjustBalance adds delta to the stored balance. The surrounding WithTx
// holds the store's write lock, so the read and the write cannot interleave
// with another adjustment.
func (qs *queries) AdjustBalance(ctx context.Context, id ledger.AccountID, delta decimal.Decimal) error {
	var raw string
	err := qs.q.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("adjust balance: no such account %s", id)
	}
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("adjust balance: corrupt balance %q: %w", raw, err)
	}

	_, err = qs.q.ExecContext(ctx, "UPDATE accounts SET balance = ? WHERE id = ?",
		balance.Add(delta).String(), id)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(sc scanner) (ledger.Account, error) {
	var (
		a                    ledger.Account
		balance              string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &balance, &a.Deleted, &createdAt, &updatedAt); err != nil {
		return a, err
	}
	a.Balance = parseDecimal(balance)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, owner_id, kind, amount, category_id, description, date, division,
	account_id, linked_entry_id, leg, deleted, deleted_at, created_at, updated_at`

func (qs *queries) GetEntry(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	row := qs.q.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (qs *queries) InsertEntry(ctx context.Context, e ledger.Entry) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Kind, e.Amount.String(), e.CategoryID, e.Description,
		formatTime(e.Date), e.Division,
		nullString(string(e.AccountID)), nullString(string(e.LinkedEntryID)), e.Leg,
		e.Deleted, nullTime(e.DeletedAt),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	return wrapWriteError("insert entry", err)
}

func (qs *queries) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	res, err := qs.q.ExecContext(ctx, `
		UPDATE entries SET
			kind = ?, amount = ?, category_id = ?, description = ?, date = ?, division = ?,
			account_id = ?, linked_entry_id = ?, leg = ?, deleted = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?`,
		e.Kind, e.Amount.String(), e.CategoryID, e.Description, formatTime(e.Date), e.Division,
		nullString(string(e.AccountID)), nullString(string(e.LinkedEntryID)), e.Leg,
		e.Deleted, nullTime(e.DeletedAt), formatTime(e.UpdatedAt),
		e.ID,
	)
	if err != nil {
		return wrapWriteError("update entry", err)
	}
	return requireOneRow(res, "entry", string(e.ID))
}

func (qs *queries) ListEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if !f.IncludeDeleted {
		where = append(where, "deleted = 0")
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatTime(f.To))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Division != "" {
		where = append(where, "division = ?")
		args = append(args, f.Division)
	}
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}

	query := "SELECT " + entryColumns + " FROM entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, created_at ASC, id ASC"

	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(sc scanner) (ledger.Entry, error) {
	var (
		e                    ledger.Entry
		amount, date         string
		accountID, linkedID  sql.NullString
		deletedAt            sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(
		&e.ID, &e.OwnerID, &e.Kind, &amount, &e.CategoryID, &e.Description, &date, &e.Division,
		&accountID, &linkedID, &e.Leg, &e.Deleted, &deletedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return e, err
	}
	e.Amount = parseDecimal(amount)
	e.Date = parseTime(date)
	e.AccountID = ledger.AccountID(accountID.String)
	e.LinkedEntryID = ledger.EntryID(linkedID.String)
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		e.DeletedAt = &t
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

const categoryColumns = `id, owner_id, name, kind, is_default, created_at`

func (qs *queries) GetCategory(ctx context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	row := qs.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (qs *queries) ListCategories(ctx context.Context, owner ledger.UserID) ([]ledger.Category, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE is_default = 1 OR owner_id = ?
		ORDER BY is_default DESC, name ASC, id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (qs *queries) InsertCategory(ctx context.Context, c ledger.Category) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Kind, c.IsDefault, formatTime(c.CreatedAt),
	)
	return wrapWriteError("insert category", err)
}

// EnsureCategory inserts c unless its natural key exists, then returns the
// stored row. The unique index makes concurrent callers converge on one row.
func (qs *queries) EnsureCategory(ctx context.Context, c ledger.Category) (*ledger.Category, error) {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		c.ID, c.OwnerID, c.Name, c.Kind, c.IsDefault, formatTime(c.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("ensure category: %w", err)
	}

	row := qs.q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE owner_id = ? AND name = ? COLLATE NOCASE AND kind = ?`,
		c.OwnerID, c.Name, c.Kind)
	stored, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("ensure category: %w", err)
	}
	return &stored, nil
}

func scanCategory(sc scanner) (ledger.Category, error) {
	var (
		c         ledger.Category
		createdAt string
	)
	if err := sc.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind, &c.IsDefault, &createdAt); err != nil {
		return c, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

const budgetColumns = `id, owner_id, category_id, period, amount, created_at`

func (qs *queries) ListBudgets(ctx context.Context, owner ledger.UserID) ([]ledger.Budget, error) {
	rows, err := qs.q.QueryContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE owner_id = ? ORDER BY rowid ASC", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []ledger.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (qs *queries) UpsertBudget(ctx context.Context, b ledger.Budget) (*ledger.Budget, error) {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, category_id) DO UPDATE SET
			period = excluded.period,
			amount = excluded.amount`,
		b.ID, b.OwnerID, b.CategoryID, b.Period, b.Amount.String(), formatTime(b.CreatedAt),
	)
	if err != nil {
		return nil, wrapWriteError("upsert budget", err)
	}

	row := qs.q.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE owner_id = ? AND category_id = ?",
		b.OwnerID, b.CategoryID)
	stored, err := scanBudget(row)
	if err != nil {
		return nil, fmt.Errorf("upsert budget: %w", err)
	}
	return &stored, nil
}

func scanBudget(sc scanner) (ledger.Budget, error) {
	var (
		b                 ledger.Budget
		amount, createdAt string
	)
	if err := sc.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &b.Period, &amount, &createdAt); err != nil {
		return b, err
	}
	b.Amount = parseDecimal(amount)
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// =============================================================================
// GOALS
// =============================================================================

const goalColumns = `id, owner_id, name, target, current, deadline, created_at`

func (qs *queries) GetGoal(ctx context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	row := qs.q.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (qs *queries) ListGoals(ctx context.Context, owner ledger.UserID) ([]ledger.Goal, error) {
	rows, err := qs.q.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE owner_id = ? ORDER BY created_at ASC, id ASC", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []ledger.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (qs *queries) InsertGoal(ctx context.Context, g ledger.Goal) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, g.Target.String(), g.Current.String(),
		nullTime(g.Deadline), formatTime(g.CreatedAt),
	)
	return wrapWriteError("insert goal", err)
}

func (qs *queries) AddToGoal(ctx context.Context, id ledger.GoalID, amount decimal.Decimal) error {
	var raw string
	err := qs.q.QueryRowContext(ctx, "SELECT current FROM goals WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("add to goal: no such goal %s", id)
	}
	if err != nil {
		return fmt.Errorf("add to goal: %w", err)
	}
	_, err = qs.q.ExecContext(ctx, "UPDATE goals SET current = ? WHERE id = ?",
		parseDecimal(raw).Add(amount).String(), id)
	if err != nil {
		return fmt.Errorf("add to goal: %w", err)
	}
	return nil
}

func scanGoal(sc scanner) (ledger.Goal, error) {
	var (
		g               ledger.Goal
		target, current string
		deadline        sql.NullString
		createdAt       string
	)
	if err := sc.Scan(&g.ID, &g.OwnerID, &g.Name, &target, &current, &deadline, &createdAt); err != nil {
		return g, err
	}
	g.Target = parseDecimal(target)
	g.Current = parseDecimal(current)
	if deadline.Valid {
		t := parseTime(deadline.String)
		g.Deadline = &t
	}
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func requireOneRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update %s %s: no such row", what, id)
	}
	return nil
}

// wrapWriteError maps unique-constraint violations to ledger.ErrConflict.
func wrapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", op, ledger.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
