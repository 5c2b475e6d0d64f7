package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/sqlite"
)

var t0 = time.Date(2025, time.March, 12, 10, 0, 0, 123456789, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func account(id, owner, name string) ledger.Account {
	return ledger.Account{
		ID:        ledger.AccountID(id),
		OwnerID:   ledger.UserID(owner),
		Name:      name,
		Type:      ledger.AccountCash,
		Balance:   decimal.Zero,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(st ledger.Store) error {
		if err := st.InsertAccount(ctx, account("a1", "alice", "Cash")); err != nil {
			return err
		}
		if err := st.AdjustBalance(ctx, "a1", decimal.NewFromInt(10)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		a, err := st.GetAccount(ctx, "a1")
		require.NoError(t, err)
		assert.Nil(t, a)
		return nil
	}))
}

func TestAccounts_UniqueActiveNameIgnoresCase(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertAccount(ctx, account("a1", "alice", "Cash"))
	}))

	err := s.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertAccount(ctx, account("a2", "alice", "CASH"))
	})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	// Soft-deleting frees the name.
	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		a, err := st.GetAccount(ctx, "a1")
		if err != nil {
			return err
		}
		a.Deleted = true
		if err := st.UpdateAccount(ctx, *a); err != nil {
			return err
		}
		return st.InsertAccount(ctx, account("a2", "alice", "CASH"))
	}))

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		found, err := st.FindAccountByName(ctx, "alice", "cash")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, ledger.AccountID("a2"), found.ID)

		all, err := st.ListAccounts(ctx, "alice", true)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	}))
}

func TestAdjustBalance_Decimal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		if err := st.InsertAccount(ctx, account("a1", "alice", "Cash")); err != nil {
			return err
		}
		for _, d := range []string{"0.10", "0.20", "-0.05"} {
			if err := st.AdjustBalance(ctx, "a1", decimal.RequireFromString(d)); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		a, err := st.GetAccount(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, a.Balance.Equal(decimal.RequireFromString("0.25")), "got %s", a.Balance)
		return nil
	}))

	err := s.WithTx(ctx, func(st ledger.Store) error {
		return st.AdjustBalance(ctx, "missing", decimal.NewFromInt(1))
	})
	assert.Error(t, err)
}

func TestEntries_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	deletedAt := t0.Add(time.Minute)

	e := ledger.Entry{
		ID:            "e1",
		OwnerID:       "alice",
		Kind:          ledger.KindTransfer,
		Amount:        decimal.RequireFromString("12.34"),
		CategoryID:    "c1",
		Description:   "Transfer to Bank",
		Date:          time.Date(2025, time.March, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600)),
		Division:      ledger.DivisionPersonal,
		AccountID:     "a1",
		LinkedEntryID: "e2",
		Leg:           ledger.LegWithdrawal,
		Deleted:       true,
		DeletedAt:     &deletedAt,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertEntry(ctx, e)
	}))

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		got, err := st.GetEntry(ctx, "e1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Amount.Equal(e.Amount))
		assert.True(t, got.Date.Equal(e.Date))
		assert.True(t, got.CreatedAt.Equal(t0), "nanoseconds survive")
		require.NotNil(t, got.DeletedAt)
		assert.True(t, got.DeletedAt.Equal(deletedAt))
		assert.Equal(t, e.LinkedEntryID, got.LinkedEntryID)
		assert.Equal(t, e.Leg, got.Leg)
		assert.True(t, got.Deleted)

		missing, err := st.GetEntry(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	}))
}

func TestListEntries_RangeUsesInstants(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// 23:30 in UTC-5 is 04:30 UTC the next day.
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2025, time.March, 31, 23, 30, 0, 0, est)

	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertEntry(ctx, ledger.Entry{
			ID: "e1", OwnerID: "alice", Kind: ledger.KindExpense, Amount: decimal.NewFromInt(1),
			CategoryID: "c1", Date: late, Division: ledger.DivisionPersonal, CreatedAt: t0, UpdatedAt: t0,
		})
	}))

	march := ledger.PeriodMonth.WindowAt(time.Date(2025, time.March, 15, 0, 0, 0, 0, est))
	april := ledger.PeriodMonth.WindowAt(time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		inMarch, err := st.ListEntries(ctx, ledger.EntryFilter{OwnerID: "alice", From: march.Start, To: march.End})
		require.NoError(t, err)
		assert.Len(t, inMarch, 1, "March in EST")

		inApril, err := st.ListEntries(ctx, ledger.EntryFilter{OwnerID: "alice", From: april.Start, To: april.End})
		require.NoError(t, err)
		assert.Len(t, inApril, 1, "April in UTC")
		return nil
	}))
}

func TestEnsureCategory_Idempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	var first, second *ledger.Category
	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		var err error
		first, err = st.EnsureCategory(ctx, ledger.Category{ID: "c1", Name: "Transfer", Kind: ledger.KindTransfer, IsDefault: true, CreatedAt: t0})
		if err != nil {
			return err
		}
		second, err = st.EnsureCategory(ctx, ledger.Category{ID: "c2", Name: "transfer", Kind: ledger.KindTransfer, IsDefault: true, CreatedAt: t0})
		return err
	}))
	assert.Equal(t, ledger.CategoryID("c1"), first.ID)
	assert.Equal(t, ledger.CategoryID("c1"), second.ID)

	err := s.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertCategory(ctx, ledger.Category{ID: "c3", Name: "TRANSFER", Kind: ledger.KindTransfer, IsDefault: true, CreatedAt: t0})
	})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		visible, err := st.ListCategories(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, visible, 1)
		return nil
	}))
}

func TestUpsertBudget_KeepsRecordOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	budget := func(id, category string, amount int64) ledger.Budget {
		return ledger.Budget{
			ID: ledger.BudgetID(id), OwnerID: "alice", CategoryID: ledger.CategoryID(category),
			Period: ledger.BudgetMonthly, Amount: decimal.NewFromInt(amount), CreatedAt: t0,
		}
	}

	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		for _, b := range []ledger.Budget{budget("b1", "food", 100), budget("b2", "bills", 50), budget("b3", "food", 80)} {
			if _, err := st.UpsertBudget(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		budgets, err := st.ListBudgets(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, budgets, 2)
		assert.Equal(t, ledger.BudgetID("b1"), budgets[0].ID)
		assert.True(t, budgets[0].Amount.Equal(decimal.NewFromInt(80)))
		assert.Equal(t, ledger.BudgetID("b2"), budgets[1].ID)
		return nil
	}))
}

func TestGoals_AddAndDeadline(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	deadline := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		if err := st.InsertGoal(ctx, ledger.Goal{
			ID: "g1", OwnerID: "alice", Name: "Bike", Target: decimal.NewFromInt(500),
			Current: decimal.Zero, Deadline: &deadline, CreatedAt: t0,
		}); err != nil {
			return err
		}
		return st.AddToGoal(ctx, "g1", decimal.RequireFromString("120.5"))
	}))

	require.NoError(t, s.View(ctx, func(st ledger.Store) error {
		g, err := st.GetGoal(ctx, "g1")
		require.NoError(t, err)
		assert.True(t, g.Current.Equal(decimal.RequireFromString("120.5")))
		require.NotNil(t, g.Deadline)
		assert.True(t, g.Deadline.Equal(deadline))
		return nil
	}))
}

func TestNew_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertAccount(ctx, account("a1", "alice", "Cash"))
	}))
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Ping(ctx))

	require.NoError(t, reopened.View(ctx, func(st ledger.Store) error {
		a, err := st.GetAccount(ctx, "a1")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "Cash", a.Name)
		return nil
	}))
}
