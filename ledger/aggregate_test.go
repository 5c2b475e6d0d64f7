package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ledger-engine/ledger"
)

// spend records an expense in the named category.
func (env *testEnv) spend(category, amount string, date time.Time, division ledger.Division) *ledger.Entry {
	env.t.Helper()
	e, err := env.engine.CreateEntry(env.ctx, alice, ledger.NewEntry{
		Kind:       ledger.KindExpense,
		Amount:     dec(amount),
		CategoryID: env.category(category, ledger.KindExpense),
		Date:       date,
		Division:   division,
		AccountID:  env.cash,
	})
	require.NoError(env.t, err)
	return e
}

// seedMonth records February and March activity around testStart.
//
//	Feb: income 800, expense 200 (Food)
//	Mar: income 1000 (Mar 5), Food 250 (Mar 10), Transport 50 office (Mar 12),
//	     a 100 transfer and a deleted 999 expense, both ignored
func seedMonth(t *testing.T, env *testEnv) {
	t.Helper()
	env.record(ledger.KindIncome, "800", env.bank, day(2025, time.February, 1))
	env.spend("Food", "200", day(2025, time.February, 14), "")

	env.record(ledger.KindIncome, "1000", env.bank, day(2025, time.March, 5))
	env.spend("Food", "250", day(2025, time.March, 10), "")
	env.spend("Transport", "50", day(2025, time.March, 12), ledger.DivisionOffice)

	_, err := env.engine.Transfer(env.ctx, alice, ledger.TransferRequest{
		From: env.bank, To: env.cash, Amount: dec("100"), Date: day(2025, time.March, 12),
	})
	require.NoError(t, err)

	gone := env.spend("Food", "999", day(2025, time.March, 11), "")
	_, err = env.engine.DeleteEntry(env.ctx, alice, gone.ID)
	require.NoError(t, err)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummary(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		s, err := env.engine.Summary(env.ctx, alice, ledger.PeriodMonth, "")
		require.NoError(t, err)

		assert.Equal(t, day(2025, time.March, 1), s.Window.Start)
		assert.True(t, s.Income.Equal(dec("1000")))
		assert.True(t, s.Expense.Equal(dec("300")))
		assert.True(t, s.Balance.Equal(dec("700")))
		assert.Equal(t, 70.0, s.SavingsRate)
		assert.Equal(t, 25.0, s.IncomeTrend)
		assert.Equal(t, 50.0, s.ExpenseTrend)
		assert.Equal(t, 3, s.EntryCount)
	})
}

func TestSummary_DivisionAndEmptyBase(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		s, err := env.engine.Summary(env.ctx, alice, ledger.PeriodMonth, ledger.DivisionOffice)
		require.NoError(t, err)
		assert.True(t, s.Income.IsZero())
		assert.True(t, s.Expense.Equal(dec("50")))
		assert.Equal(t, 0.0, s.SavingsRate, "no income")
		assert.Equal(t, 0.0, s.ExpenseTrend, "previous base is zero")

		_, err = env.engine.Summary(env.ctx, alice, ledger.PeriodMonth, "home")
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestSummary_EmptyIsValid(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		s, err := env.engine.Summary(env.ctx, alice, ledger.PeriodYear, "")
		require.NoError(t, err)
		assert.True(t, s.Balance.IsZero())
		assert.Equal(t, 0, s.EntryCount)
	})
}

func TestAggregation_RejectsUnknownPeriod(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)
		quarter := ledger.Period("quarter")

		_, err := env.engine.Summary(env.ctx, alice, quarter, "")
		assert.ErrorIs(t, err, ledger.ErrValidation)
		_, err = env.engine.Breakdown(env.ctx, alice, quarter, ledger.KindExpense, "")
		assert.ErrorIs(t, err, ledger.ErrValidation)
		_, err = env.engine.Trend(env.ctx, alice, quarter, "")
		assert.ErrorIs(t, err, ledger.ErrValidation)
		_, err = env.engine.Insight(env.ctx, alice, quarter, "")
		assert.ErrorIs(t, err, ledger.ErrValidation)

		// An empty period is a month.
		s, err := env.engine.Summary(env.ctx, alice, "", "")
		require.NoError(t, err)
		assert.Equal(t, ledger.PeriodMonth, s.Period)
		assert.Equal(t, day(2025, time.March, 1), s.Window.Start)
		points, err := env.engine.Trend(env.ctx, alice, "", "")
		require.NoError(t, err)
		assert.Len(t, points, 31)
	})
}

func TestAggregation_Idempotent(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		for _, p := range []ledger.Period{ledger.PeriodWeek, ledger.PeriodMonth, ledger.PeriodYear} {
			s1, err := env.engine.Summary(env.ctx, alice, p, "")
			require.NoError(t, err)
			s2, err := env.engine.Summary(env.ctx, alice, p, "")
			require.NoError(t, err)
			assert.Equal(t, s1, s2)

			b1, err := env.engine.Breakdown(env.ctx, alice, p, ledger.KindExpense, "")
			require.NoError(t, err)
			b2, err := env.engine.Breakdown(env.ctx, alice, p, ledger.KindExpense, "")
			require.NoError(t, err)
			assert.Equal(t, b1, b2)

			t1, err := env.engine.Trend(env.ctx, alice, p, "")
			require.NoError(t, err)
			t2, err := env.engine.Trend(env.ctx, alice, p, "")
			require.NoError(t, err)
			assert.Equal(t, t1, t2)
		}

		// Reads did not write.
		env.assertBalance(env.cash, "-400")
		env.assertBalance(env.bank, "1700")
	})
}

// =============================================================================
// BREAKDOWN / TREND
// =============================================================================

func TestBreakdown(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		rows, err := env.engine.Breakdown(env.ctx, alice, ledger.PeriodMonth, "", "")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "Food", rows[0].Name)
		assert.True(t, rows[0].Total.Equal(dec("250")))
		assert.Equal(t, 1, rows[0].Count)
		assert.Equal(t, 83.3, rows[0].Percentage)
		assert.Equal(t, "Transport", rows[1].Name)
		assert.Equal(t, 16.7, rows[1].Percentage)

		income, err := env.engine.Breakdown(env.ctx, alice, ledger.PeriodMonth, ledger.KindIncome, "")
		require.NoError(t, err)
		require.Len(t, income, 1)
		assert.Equal(t, "Salary", income[0].Name)
		assert.Equal(t, 100.0, income[0].Percentage)

		_, err = env.engine.Breakdown(env.ctx, alice, ledger.PeriodMonth, ledger.KindTransfer, "")
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestTrend_GapFilled(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		points, err := env.engine.Trend(env.ctx, alice, ledger.PeriodWeek, "")
		require.NoError(t, err)
		require.Len(t, points, 7)

		assert.Equal(t, day(2025, time.March, 9), points[0].Date)
		assert.True(t, points[0].Net.IsZero())

		mar10 := points[1]
		assert.Equal(t, day(2025, time.March, 10), mar10.Date)
		assert.True(t, mar10.Expense.Equal(dec("250")))
		assert.True(t, mar10.Net.Equal(dec("-250")))

		mar12 := points[3]
		assert.True(t, mar12.Expense.Equal(dec("50")), "transfer excluded")
		assert.True(t, mar12.Income.IsZero())

		month, err := env.engine.Trend(env.ctx, alice, ledger.PeriodMonth, "")
		require.NoError(t, err)
		require.Len(t, month, 31)
		assert.True(t, month[4].Income.Equal(dec("1000")))
	})
}

// =============================================================================
// BUDGET UTILIZATION
// =============================================================================

func TestBudgetUsage_Statuses(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		_, err := env.engine.SetBudget(env.ctx, alice, env.category("Food", ledger.KindExpense), ledger.BudgetMonthly, dec("300"))
		require.NoError(t, err)
		_, err = env.engine.SetBudget(env.ctx, alice, env.category("Transport", ledger.KindExpense), ledger.BudgetWeekly, dec("40"))
		require.NoError(t, err)
		_, err = env.engine.SetBudget(env.ctx, alice, env.category("Bills", ledger.KindExpense), ledger.BudgetMonthly, dec("0"))
		require.NoError(t, err)
		_, err = env.engine.SetBudget(env.ctx, alice, env.category("Health", ledger.KindExpense), ledger.BudgetMonthly, dec("100"))
		require.NoError(t, err)

		usage, err := env.engine.BudgetUsage(env.ctx, alice, "")
		require.NoError(t, err)
		require.Len(t, usage, 4)

		food := usage[0]
		assert.Equal(t, "Food", food.CategoryName)
		assert.True(t, food.Spent.Equal(dec("250")))
		assert.True(t, food.Remaining.Equal(dec("50")))
		assert.Equal(t, 83.3, food.Percentage)
		assert.Equal(t, ledger.BudgetWarning, food.Status)

		transport := usage[1]
		assert.Equal(t, day(2025, time.March, 9), transport.Window.Start, "weekly budget uses the week")
		assert.Equal(t, 125.0, transport.Percentage)
		assert.True(t, transport.Remaining.IsZero())
		assert.Equal(t, ledger.BudgetExceeded, transport.Status)

		bills := usage[2]
		assert.Equal(t, 0.0, bills.Percentage, "zero target")
		assert.Equal(t, ledger.BudgetNormal, bills.Status)

		health := usage[3]
		assert.True(t, health.Spent.IsZero())
		assert.Equal(t, ledger.BudgetNormal, health.Status)
	})
}

func TestBudgetUsage_Thresholds(t *testing.T) {
	tests := []struct {
		spent  string
		status ledger.BudgetStatus
	}{
		{"79.99", ledger.BudgetNormal},
		{"80", ledger.BudgetWarning},
		{"99.99", ledger.BudgetWarning},
		{"100", ledger.BudgetExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.spent, func(t *testing.T) {
			env := newEnv(t, backends[0].open(t))
			_, err := env.engine.SetBudget(env.ctx, alice, env.category("Food", ledger.KindExpense), ledger.BudgetMonthly, dec("100"))
			require.NoError(t, err)
			env.spend("Food", tt.spent, testStart, "")

			usage, err := env.engine.BudgetUsage(env.ctx, alice, "")
			require.NoError(t, err)
			require.Len(t, usage, 1)
			assert.Equal(t, tt.status, usage[0].Status)
		})
	}
}

func TestBudgetUsage_WeeklyIgnoresEarlierWeeks(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		_, err := env.engine.SetBudget(env.ctx, alice, env.category("Food", ledger.KindExpense), ledger.BudgetWeekly, dec("100"))
		require.NoError(t, err)
		env.spend("Food", "500", day(2025, time.March, 8), "") // Saturday of last week
		env.spend("Food", "30", day(2025, time.March, 9), "")

		usage, err := env.engine.BudgetUsage(env.ctx, alice, "")
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.True(t, usage[0].Spent.Equal(dec("30")))
		assert.Equal(t, ledger.BudgetNormal, usage[0].Status)
	})
}

// =============================================================================
// INSIGHT
// =============================================================================

func TestInsight_Priority(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		insight := func() *ledger.Insight {
			t.Helper()
			in, err := env.engine.Insight(env.ctx, alice, ledger.PeriodMonth, "")
			require.NoError(t, err)
			return in
		}

		// 5. Nothing recorded: fallback
		in := insight()
		assert.Equal(t, ledger.InsightInfo, in.Type)
		assert.Equal(t, "Keep tracking", in.Title)

		// 4. Spending without history: top category
		env.spend("Food", "100", day(2025, time.March, 3), "")
		env.spend("Transport", "20", day(2025, time.March, 4), "")
		in = insight()
		assert.Equal(t, "Top spending category", in.Title)
		assert.Equal(t, env.category("Food", ledger.KindExpense), in.CategoryID)
		assert.Equal(t, ledger.SeverityLow, in.Severity)

		// 3. Expenses up more than 20% on last month
		env.spend("Food", "60", day(2025, time.February, 3), "")
		in = insight()
		assert.Equal(t, "Spending is up", in.Title)
		assert.Contains(t, in.Message, "100.0%")

		// 2. A budget in warning beats the swing
		_, err := env.engine.SetBudget(env.ctx, alice, env.category("Food", ledger.KindExpense), ledger.BudgetMonthly, dec("120"))
		require.NoError(t, err)
		in = insight()
		assert.Equal(t, ledger.InsightWarning, in.Type)
		assert.Equal(t, ledger.SeverityMedium, in.Severity)
		assert.Contains(t, in.Message, "83.3%")

		// 1. An exceeded budget beats a warning that comes first in record order
		_, err = env.engine.SetBudget(env.ctx, alice, env.category("Transport", ledger.KindExpense), ledger.BudgetMonthly, dec("10"))
		require.NoError(t, err)
		in = insight()
		assert.Equal(t, ledger.SeverityHigh, in.Severity)
		assert.Equal(t, "Budget exceeded", in.Title)
		assert.Equal(t, env.category("Transport", ledger.KindExpense), in.CategoryID)
		assert.Contains(t, in.Message, "100.0% over your Transport budget")
	})
}

func TestInsight_SpendingDown(t *testing.T) {
	eachStore(t, func(t *testing.T, env *testEnv) {
		env.spend("Food", "500", day(2025, time.February, 10), "")
		env.spend("Food", "100", day(2025, time.March, 10), "")

		in, err := env.engine.Insight(env.ctx, alice, ledger.PeriodMonth, "")
		require.NoError(t, err)
		assert.Equal(t, ledger.InsightSuccess, in.Type)
		assert.Equal(t, "Spending is down", in.Title)
		assert.Contains(t, in.Message, "80.0% less")
	})
}
