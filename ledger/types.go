/*
Package ledger provides the ledger consistency engine.

PURPOSE:
  This package keeps per-account balances, individual money-movement
  records and derived period aggregates correct under concurrent writes,
  multi-step transfers, soft-deletion with a short undo window, and a
  time-boxed edit/delete permission on records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A balance holder owned by one user (bank, cash, wallet)
  - Entry: A single money movement (income, expense, or one transfer leg)
  - Category, Budget, Goal: Supporting records read by aggregation
  - Kind / Division / LegDirection: Closed enumerations with Valid()

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never float64
  2. Incremental balances: Account.Balance is adjusted by deltas, never
     recomputed by rescanning entries
  3. Soft deletion: Entries and accounts are flagged, not removed
  4. Type Safety: Strong typing for IDs prevents mixing account/entry IDs

USAGE:
  engine := ledger.NewEngine(store)
  entry, err := engine.CreateEntry(ctx, "user-1", ledger.NewEntry{
      Kind:       ledger.KindExpense,
      Amount:     decimal.NewFromInt(200),
      CategoryID: "food",
      Date:       time.Now(),
      AccountID:  cash.ID,
  })

SEE ALSO:
  - balance.go: Balance synchronizer (signed effects and deltas)
  - transfer.go: Transfer orchestrator
  - window.go: Edit and undo windows
  - aggregate.go: Period summaries, breakdowns, trends, budgets
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AccountID string
type EntryID string
type CategoryID string
type BudgetID string
type GoalID string

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountBank   AccountType = "bank"
	AccountCash   AccountType = "cash"
	AccountWallet AccountType = "wallet"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountCash, AccountWallet:
		return true
	}
	return false
}

// MaxAccountNameLength bounds Account.Name (in characters).
const MaxAccountNameLength = 50

// Account holds a running balance. Balance may go negative; there is no
// overdraft check anywhere in the engine.
type Account struct {
	ID        AccountID
	OwnerID   UserID
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// LEDGER ENTRY
// =============================================================================

type Kind string

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"
)

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// Division is a cost-center tag. It has no effect on balance math.
type Division string

const (
	DivisionPersonal Division = "personal"
	DivisionOffice   Division = "office"
)

func (d Division) Valid() bool {
	return d == DivisionPersonal || d == DivisionOffice
}

// LegDirection tells which side of a transfer an entry is.
// Empty for income and expense entries.
type LegDirection string

const (
	LegWithdrawal LegDirection = "withdrawal"
	LegDeposit    LegDirection = "deposit"
)

// MaxDescriptionLength bounds Entry.Description (in characters).
const MaxDescriptionLength = 200

// Entry is one money movement. AccountID is optional for income and
// expense entries and always set on transfer legs. LinkedEntryID points
// at the other leg of a transfer pair.
type Entry struct {
	ID            EntryID
	OwnerID       UserID
	Kind          Kind
	Amount        decimal.Decimal
	CategoryID    CategoryID
	Description   string
	Date          time.Time
	Division      Division
	AccountID     AccountID
	LinkedEntryID EntryID
	Leg           LegDirection
	Deleted       bool
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsTransferLeg reports whether the entry is one side of a transfer pair.
func (e Entry) IsTransferLeg() bool { return e.Kind == KindTransfer }

// =============================================================================
// CATEGORY
// =============================================================================

// Category groups entries for breakdowns and budgets. System categories
// have an empty OwnerID and IsDefault set; they are visible to every user.
type Category struct {
	ID        CategoryID
	OwnerID   UserID
	Name      string
	Kind      Kind
	IsDefault bool
	CreatedAt time.Time
}

// VisibleTo reports whether owner may reference the category.
func (c Category) VisibleTo(owner UserID) bool {
	return c.IsDefault || c.OwnerID == owner
}

// TransferCategoryName is the natural key of the system category assigned
// to every transfer leg.
const TransferCategoryName = "Transfer"

// =============================================================================
// BUDGET
// =============================================================================

type BudgetPeriod string

const (
	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
)

func (p BudgetPeriod) Valid() bool {
	return p == BudgetWeekly || p == BudgetMonthly
}

// Budget caps expense spending for one (owner, category) per period.
type Budget struct {
	ID         BudgetID
	OwnerID    UserID
	CategoryID CategoryID
	Period     BudgetPeriod
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

// =============================================================================
// GOAL
// =============================================================================

// Goal is a savings target fed by direct contributions. It is not derived
// from ledger entries and never touches account balances.
type Goal struct {
	ID        GoalID
	OwnerID   UserID
	Name      string
	Target    decimal.Decimal
	Current   decimal.Decimal
	Deadline  *time.Time
	CreatedAt time.Time
}

// Reached reports whether contributions have met the target.
func (g Goal) Reached() bool { return g.Current.GreaterThanOrEqual(g.Target) }
