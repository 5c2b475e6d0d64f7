// Package store provides TxStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	accounts   map[ledger.AccountID]ledger.Account
	entries    map[ledger.EntryID]ledger.Entry
	categories map[ledger.CategoryID]ledger.Category
	budgets    []ledger.Budget
	goals      map[ledger.GoalID]ledger.Goal
}

func NewMemory() *Memory {
	return &Memory{data: memoryData{
		accounts:   make(map[ledger.AccountID]ledger.Account),
		entries:    make(map[ledger.EntryID]ledger.Entry),
		categories: make(map[ledger.CategoryID]ledger.Category),
		goals:      make(map[ledger.GoalID]ledger.Goal),
	}}
}

// View executes fn under a read lock.
func (m *Memory) View(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryView{d: &m.data})
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole unit, which also serializes
// balance adjustments.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&memoryView{d: &m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (d *memoryData) clone() memoryData {
	c := memoryData{
		accounts:   make(map[ledger.AccountID]ledger.Account, len(d.accounts)),
		entries:    make(map[ledger.EntryID]ledger.Entry, len(d.entries)),
		categories: make(map[ledger.CategoryID]ledger.Category, len(d.categories)),
		budgets:    append([]ledger.Budget(nil), d.budgets...),
		goals:      make(map[ledger.GoalID]ledger.Goal, len(d.goals)),
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.goals {
		c.goals[k] = v
	}
	return c
}

// memoryView implements ledger.Store. Callers hold the Memory lock.
type memoryView struct {
	d *memoryData
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (v *memoryView) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	a, ok := v.d.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (v *memoryView) ListAccounts(_ context.Context, owner ledger.UserID, includeDeleted bool) ([]ledger.Account, error) {
	var result []ledger.Account
	for _, a := range v.d.accounts {
		if a.OwnerID != owner || (a.Deleted && !includeDeleted) {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (v *memoryView) FindAccountByName(_ context.Context, owner ledger.UserID, name string) (*ledger.Account, error) {
	for _, a := range v.d.accounts {
		if a.OwnerID == owner && !a.Deleted && strings.EqualFold(a.Name, name) {
			return &a, nil
		}
	}
	return nil, nil
}

func (v *memoryView) InsertAccount(ctx context.Context, a ledger.Account) error {
	if _, ok := v.d.accounts[a.ID]; ok {
		return fmt.Errorf("account %s: %w", a.ID, ledger.ErrConflict)
	}
	if existing, _ := v.FindAccountByName(ctx, a.OwnerID, a.Name); existing != nil && !a.Deleted {
		return fmt.Errorf("account name %q: %w", a.Name, ledger.ErrConflict)
	}
	v.d.accounts[a.ID] = a
	return nil
}

func (v *memoryView) UpdateAccount(_ context.Context, a ledger.Account) error {
	if _, ok := v.d.accounts[a.ID]; !ok {
		return fmt.Errorf("update account %s: no such account", a.ID)
	}
	for _, other := range v.d.accounts {
		if other.ID != a.ID && other.OwnerID == a.OwnerID && !other.Deleted && !a.Deleted &&
			strings.EqualFold(other.Name, a.Name) {
			return fmt.Errorf("account name %q: %w", a.Name, ledger.ErrConflict)
		}
	}
	v.d.accounts[a.ID] = a
	return nil
}

func (v *memoryView) AdjustBalance(_ context.Context, id ledger.AccountID, delta decimal.Decimal) error {
	a, ok := v.d.accounts[id]
	if !ok {
		return fmt.Errorf("adjust balance: no such account %s", id)
	}
	a.Balance = a.Balance.Add(delta)
	v.d.accounts[id] = a
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (v *memoryView) GetEntry(_ context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	e, ok := v.d.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (v *memoryView) InsertEntry(_ context.Context, e ledger.Entry) error {
	if _, ok := v.d.entries[e.ID]; ok {
		return fmt.Errorf("entry %s: %w", e.ID, ledger.ErrConflict)
	}
	v.d.entries[e.ID] = e
	return nil
}

func (v *memoryView) UpdateEntry(_ context.Context, e ledger.Entry) error {
	if _, ok := v.d.entries[e.ID]; !ok {
		return fmt.Errorf("update entry %s: no such entry", e.ID)
	}
	v.d.entries[e.ID] = e
	return nil
}

func (v *memoryView) ListEntries(_ context.Context, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	var result []ledger.Entry
	for _, e := range v.d.entries {
		if filter.Match(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (v *memoryView) GetCategory(_ context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	c, ok := v.d.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (v *memoryView) ListCategories(_ context.Context, owner ledger.UserID) ([]ledger.Category, error) {
	var result []ledger.Category
	for _, c := range v.d.categories {
		if c.VisibleTo(owner) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsDefault != result[j].IsDefault {
			return result[i].IsDefault
		}
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (v *memoryView) findCategory(c ledger.Category) (ledger.Category, bool) {
	for _, existing := range v.d.categories {
		if existing.OwnerID == c.OwnerID && existing.Kind == c.Kind && strings.EqualFold(existing.Name, c.Name) {
			return existing, true
		}
	}
	return ledger.Category{}, false
}

func (v *memoryView) InsertCategory(_ context.Context, c ledger.Category) error {
	if _, ok := v.findCategory(c); ok {
		return fmt.Errorf("category %q: %w", c.Name, ledger.ErrConflict)
	}
	v.d.categories[c.ID] = c
	return nil
}

func (v *memoryView) EnsureCategory(_ context.Context, c ledger.Category) (*ledger.Category, error) {
	if existing, ok := v.findCategory(c); ok {
		return &existing, nil
	}
	v.d.categories[c.ID] = c
	return &c, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

func (v *memoryView) ListBudgets(_ context.Context, owner ledger.UserID) ([]ledger.Budget, error) {
	var result []ledger.Budget
	for _, b := range v.d.budgets {
		if b.OwnerID == owner {
			result = append(result, b)
		}
	}
	return result, nil
}

func (v *memoryView) UpsertBudget(_ context.Context, b ledger.Budget) (*ledger.Budget, error) {
	for i, existing := range v.d.budgets {
		if existing.OwnerID == b.OwnerID && existing.CategoryID == b.CategoryID {
			existing.Period = b.Period
			existing.Amount = b.Amount
			v.d.budgets[i] = existing
			return &existing, nil
		}
	}
	v.d.budgets = append(v.d.budgets, b)
	return &b, nil
}

// =============================================================================
// GOALS
// =============================================================================

func (v *memoryView) GetGoal(_ context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	g, ok := v.d.goals[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (v *memoryView) ListGoals(_ context.Context, owner ledger.UserID) ([]ledger.Goal, error) {
	var result []ledger.Goal
	for _, g := range v.d.goals {
		if g.OwnerID == owner {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (v *memoryView) InsertGoal(_ context.Context, g ledger.Goal) error {
	if _, ok := v.d.goals[g.ID]; ok {
		return fmt.Errorf("goal %s: %w", g.ID, ledger.ErrConflict)
	}
	v.d.goals[g.ID] = g
	return nil
}

func (v *memoryView) AddToGoal(_ context.Context, id ledger.GoalID, amount decimal.Decimal) error {
	g, ok := v.d.goals[id]
	if !ok {
		return fmt.Errorf("add to goal: no such goal %s", id)
	}
	g.Current = g.Current.Add(amount)
	v.d.goals[id] = g
	return nil
}
