package ledger

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORIES
// =============================================================================

// ListCategories returns the system categories plus the owner's own.
func (e *Engine) ListCategories(ctx context.Context, owner UserID) ([]Category, error) {
	var categories []Category
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		categories, err = s.ListCategories(ctx, owner)
		return err
	})
	if err != nil {
		return nil, internal("list categories", err)
	}
	return categories, nil
}

// CreateCategory adds an owner category. Duplicates (same name and kind,
// ignoring case, among the owner's and the system categories) conflict.
func (e *Engine) CreateCategory(ctx context.Context, owner UserID, name string, kind Kind) (*Category, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxAccountNameLength {
		return nil, validationf("category name must be 1 to %d characters", MaxAccountNameLength)
	}
	if kind != KindIncome && kind != KindExpense {
		return nil, validationf("category kind must be income or expense")
	}

	c := Category{
		ID:        CategoryID(e.NewID()),
		OwnerID:   owner,
		Name:      name,
		Kind:      kind,
		CreatedAt: e.now(),
	}
	err := e.Store.WithTx(ctx, func(s Store) error {
		existing, err := s.ListCategories(ctx, owner)
		if err != nil {
			return err
		}
		for _, ex := range existing {
			if ex.Kind == kind && strings.EqualFold(ex.Name, name) {
				return conflictf("category %q already exists", name)
			}
		}
		return s.InsertCategory(ctx, c)
	})
	if err != nil {
		return nil, internal("create category", err)
	}
	return &c, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

// SetBudget creates or replaces the owner's budget for an expense category.
func (e *Engine) SetBudget(ctx context.Context, owner UserID, categoryID CategoryID, period BudgetPeriod, amount decimal.Decimal) (*Budget, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, validationf("budget period must be weekly or monthly")
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var saved *Budget
	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := categoryForKind(ctx, s, owner, categoryID, KindExpense); err != nil {
			return err
		}
		var err error
		saved, err = s.UpsertBudget(ctx, Budget{
			ID:         BudgetID(e.NewID()),
			OwnerID:    owner,
			CategoryID: categoryID,
			Period:     period,
			Amount:     amount,
			CreatedAt:  e.now(),
		})
		return err
	})
	if err != nil {
		return nil, internal("set budget", err)
	}
	return saved, nil
}

// ListBudgets returns the owner's budgets in record order.
func (e *Engine) ListBudgets(ctx context.Context, owner UserID) ([]Budget, error) {
	var budgets []Budget
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		budgets, err = s.ListBudgets(ctx, owner)
		return err
	})
	if err != nil {
		return nil, internal("list budgets", err)
	}
	return budgets, nil
}

// =============================================================================
// GOALS
// =============================================================================

// CreateGoal adds a savings target.
func (e *Engine) CreateGoal(ctx context.Context, owner UserID, name string, target decimal.Decimal, deadline *time.Time) (*Goal, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("goal name is required")
	}
	if !target.IsPositive() {
		return nil, validationf("goal target must be greater than zero")
	}

	g := Goal{
		ID:        GoalID(e.NewID()),
		OwnerID:   owner,
		Name:      name,
		Target:    target,
		Current:   decimal.Zero,
		Deadline:  deadline,
		CreatedAt: e.now(),
	}
	err := e.Store.WithTx(ctx, func(s Store) error {
		return s.InsertGoal(ctx, g)
	})
	if err != nil {
		return nil, internal("create goal", err)
	}
	return &g, nil
}

// ListGoals returns the owner's goals.
func (e *Engine) ListGoals(ctx context.Context, owner UserID) ([]Goal, error) {
	var goals []Goal
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		goals, err = s.ListGoals(ctx, owner)
		return err
	})
	if err != nil {
		return nil, internal("list goals", err)
	}
	return goals, nil
}

// Contribute adds amount to a goal. Account balances are not touched.
func (e *Engine) Contribute(ctx context.Context, owner UserID, id GoalID, amount decimal.Decimal) (*Goal, error) {
	if !amount.IsPositive() {
		return nil, validationf("contribution must be greater than zero")
	}
	var updated *Goal
	err := e.Store.WithTx(ctx, func(s Store) error {
		g, err := s.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		if g == nil || g.OwnerID != owner {
			return notFoundf("goal %s not found", id)
		}
		if err := s.AddToGoal(ctx, id, amount); err != nil {
			return err
		}
		updated, err = s.GetGoal(ctx, id)
		return err
	})
	if err != nil {
		return nil, internal("contribute to goal", err)
	}
	return updated, nil
}
