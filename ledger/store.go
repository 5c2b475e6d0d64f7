/*
store.go - Persistence interface for accounts, entries and supporting records

PURPOSE:
  Defines the interface between the engine and the database. The engine is
  agnostic to the storage technology as long as it offers atomic
  multi-record writes and atomic balance increments.

KEY INTERFACES:
  Store:   Point reads, range scans and single-record writes
  TxStore: View (read committed) and WithTx (all-or-nothing unit of work)

ATOMIC UNITS:
  Every engine operation that writes more than one record runs inside
  WithTx. A transfer is five writes (two inserts, one back-patch, two
  balance adjustments); either all of them commit or none do.

BALANCE INCREMENTS:
  AdjustBalance applies a delta inside the store. Implementations must
  serialize concurrent deltas on the same account so no update is lost.

NOT-FOUND CONVENTION:
  Point reads return (nil, nil) when the record does not exist. Ownership
  and soft-delete checks are the engine's job.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite via database/sql
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - engine.go: Uses TxStore for every operation
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Record-level persistence
// =============================================================================

type Store interface {
	// Accounts
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context, owner UserID, includeDeleted bool) ([]Account, error)
	// FindAccountByName matches active accounts case-insensitively.
	FindAccountByName(ctx context.Context, owner UserID, name string) (*Account, error)
	InsertAccount(ctx context.Context, a Account) error
	UpdateAccount(ctx context.Context, a Account) error
	// AdjustBalance adds delta to the stored balance atomically.
	AdjustBalance(ctx context.Context, id AccountID, delta decimal.Decimal) error

	// Entries
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)
	InsertEntry(ctx context.Context, e Entry) error
	UpdateEntry(ctx context.Context, e Entry) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)

	// Categories
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)
	ListCategories(ctx context.Context, owner UserID) ([]Category, error)
	InsertCategory(ctx context.Context, c Category) error
	// EnsureCategory returns the category with c's natural key
	// (owner, name, kind), inserting c if none exists.
	EnsureCategory(ctx context.Context, c Category) (*Category, error)

	// Budgets, in record order.
	ListBudgets(ctx context.Context, owner UserID) ([]Budget, error)
	UpsertBudget(ctx context.Context, b Budget) (*Budget, error)

	// Goals
	GetGoal(ctx context.Context, id GoalID) (*Goal, error)
	ListGoals(ctx context.Context, owner UserID) ([]Goal, error)
	InsertGoal(ctx context.Context, g Goal) error
	AddToGoal(ctx context.Context, id GoalID, amount decimal.Decimal) error
}

// EntryFilter selects entries for ListEntries. Zero fields do not filter.
// From and To are inclusive bounds on Entry.Date.
type EntryFilter struct {
	OwnerID        UserID
	From           time.Time
	To             time.Time
	Kind           Kind
	Division       Division
	AccountID      AccountID
	CategoryID     CategoryID
	IncludeDeleted bool
}

// Match reports whether e passes the filter. Stores that filter in memory
// use this directly; SQL stores mirror it in their WHERE clause.
func (f EntryFilter) Match(e Entry) bool {
	if f.OwnerID != "" && e.OwnerID != f.OwnerID {
		return false
	}
	if !f.IncludeDeleted && e.Deleted {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Division != "" && e.Division != f.Division {
		return false
	}
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	return true
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with unit-of-work support.
type TxStore interface {
	// View executes fn against committed state.
	View(ctx context.Context, fn func(Store) error) error

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the Store is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
