/*
engine.go - Engine wiring, bootstrap and shared lookups

PURPOSE:
  Engine is the single entry point the route layer calls into. It holds the
  store, the mutation window policy (and through it the clock), the
  location used for calendar math, and the ID generator.

BOOTSTRAP:
  Bootstrap seeds the system categories, including the Transfer category,
  once at start-up. The Transfer category is also resolved on every
  transfer through EnsureCategory, which is a get-or-create by natural key
  guarded by a unique index, so a missing seed never races.

OWNERSHIP:
  Every lookup that takes a caller goes through an owned* helper. A record
  that is missing, owned by someone else, or soft-deleted is NOT_FOUND;
  the caller cannot tell these cases apart.

SEE ALSO:
  - entry.go, transfer.go, account.go, catalog.go: Operations
  - aggregate.go, insight.go: Read-only aggregation
*/
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine executes ledger operations against a TxStore.
type Engine struct {
	Store    TxStore
	Window   MutationWindow
	Location *time.Location
	NewID    func() string
}

// NewEngine creates an engine with the default 12h/30s windows, the system
// clock and the local time zone.
func NewEngine(store TxStore) *Engine {
	return &Engine{
		Store:    store,
		Window:   DefaultMutationWindow(),
		Location: time.Local,
		NewID:    uuid.NewString,
	}
}

func (e *Engine) now() time.Time {
	return e.Window.Clock.Now()
}

func (e *Engine) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

type defaultCategory struct {
	Name string
	Kind Kind
}

// DefaultCategories are the system categories every user can reference.
var DefaultCategories = []defaultCategory{
	{"Salary", KindIncome},
	{"Freelance", KindIncome},
	{"Investment", KindIncome},
	{"Other Income", KindIncome},
	{"Food", KindExpense},
	{"Transport", KindExpense},
	{"Shopping", KindExpense},
	{"Bills", KindExpense},
	{"Entertainment", KindExpense},
	{"Health", KindExpense},
	{"Education", KindExpense},
	{"Other", KindExpense},
	{TransferCategoryName, KindTransfer},
}

// Bootstrap seeds the system categories. Safe to call on every start.
func (e *Engine) Bootstrap(ctx context.Context) error {
	err := e.Store.WithTx(ctx, func(s Store) error {
		for _, dc := range DefaultCategories {
			if _, err := s.EnsureCategory(ctx, e.systemCategory(dc.Name, dc.Kind)); err != nil {
				return err
			}
		}
		return nil
	})
	return internal("bootstrap categories", err)
}

func (e *Engine) systemCategory(name string, kind Kind) Category {
	return Category{
		ID:        CategoryID(e.NewID()),
		Name:      name,
		Kind:      kind,
		IsDefault: true,
		CreatedAt: e.now(),
	}
}

// transferCategory resolves (or lazily creates) the Transfer category.
func (e *Engine) transferCategory(ctx context.Context, s Store) (*Category, error) {
	return s.EnsureCategory(ctx, e.systemCategory(TransferCategoryName, KindTransfer))
}

// defaultAccounts are created for every new user.
var defaultAccounts = []struct {
	Name string
	Type AccountType
}{
	{"Cash", AccountCash},
	{"Bank Account", AccountBank},
}

// SetupUser creates the default "Cash" and "Bank Account" accounts with a
// zero balance. Accounts that already exist are left alone.
func (e *Engine) SetupUser(ctx context.Context, owner UserID) ([]Account, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var accounts []Account
	err := e.Store.WithTx(ctx, func(s Store) error {
		for _, da := range defaultAccounts {
			existing, err := s.FindAccountByName(ctx, owner, da.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				accounts = append(accounts, *existing)
				continue
			}
			a := e.newAccount(owner, da.Name, da.Type)
			if err := s.InsertAccount(ctx, a); err != nil {
				return err
			}
			accounts = append(accounts, a)
		}
		return nil
	})
	if err != nil {
		return nil, internal("setup user", err)
	}
	return accounts, nil
}

// =============================================================================
// OWNED LOOKUPS
// =============================================================================

func requireOwner(owner UserID) error {
	if strings.TrimSpace(string(owner)) == "" {
		return validationf("owner is required")
	}
	return nil
}

func ownedAccount(ctx context.Context, s Store, owner UserID, id AccountID) (*Account, error) {
	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.OwnerID != owner || a.Deleted {
		return nil, notFoundf("account %s not found", id)
	}
	return a, nil
}

func ownedEntry(ctx context.Context, s Store, owner UserID, id EntryID) (*Entry, error) {
	en, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if en == nil || en.OwnerID != owner || en.Deleted {
		return nil, notFoundf("transaction %s not found", id)
	}
	return en, nil
}

func visibleCategory(ctx context.Context, s Store, owner UserID, id CategoryID) (*Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.VisibleTo(owner) {
		return nil, notFoundf("category %s not found", id)
	}
	return c, nil
}

// categoryForKind resolves a visible category that files entries of kind.
// The system Transfer category only matches transfer legs, which the
// orchestrator assigns itself.
func categoryForKind(ctx context.Context, s Store, owner UserID, id CategoryID, kind Kind) (*Category, error) {
	c, err := visibleCategory(ctx, s, owner, id)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind {
		return nil, validationf("category %s is a %s category, not %s", c.Name, c.Kind, kind)
	}
	return c, nil
}
