/*
aggregate.go - Aggregation engine

PURPOSE:
  Read-only period aggregates derived by scanning non-deleted entries in a
  window: summary with trend vs. the previous period, category breakdown,
  gap-filled daily trend, and budget utilization.

WINDOWS:
  Windows come from a period token (week, month, year) evaluated at the
  engine clock's "now" in the engine's location. The previous window has
  the same granularity and rolls over years correctly.

TRANSFERS:
  Transfer legs are moves between the owner's own accounts. They are
  excluded from income/expense sums, breakdowns, trends and budgets.

IDEMPOTENCE:
  Nothing here writes. The same inputs with no intervening writes return
  identical results.

SEE ALSO:
  - period.go: Window derivation
  - insight.go: Headline selection built on these aggregates
*/
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// round1 rounds a decimal to one place and returns it as a float for
// presentation.
func round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}

// percentChange is (cur-prev)/prev*100 rounded to one place; 0 when prev is 0.
func percentChange(cur, prev decimal.Decimal) float64 {
	if prev.IsZero() {
		return 0
	}
	return round1(cur.Sub(prev).Div(prev).Mul(hundred))
}

// currentWindow validates p and returns it with its window around the
// engine's "now". An empty period means month.
func (e *Engine) currentWindow(p Period) (Period, Window, error) {
	p, err := ParsePeriod(string(p))
	if err != nil {
		return "", Window{}, err
	}
	return p, p.WindowAt(e.now().In(e.location())), nil
}

func (e *Engine) scan(ctx context.Context, s Store, owner UserID, w Window, kind Kind, division Division) ([]Entry, error) {
	return s.ListEntries(ctx, EntryFilter{
		OwnerID:  owner,
		From:     w.Start,
		To:       w.End,
		Kind:     kind,
		Division: division,
	})
}

func sumByKind(entries []Entry) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, en := range entries {
		switch en.Kind {
		case KindIncome:
			income = income.Add(en.Amount)
		case KindExpense:
			expense = expense.Add(en.Amount)
		}
	}
	return income, expense
}

func validateDivisionFilter(d Division) error {
	if d != "" && !d.Valid() {
		return validationf("division must be personal or office")
	}
	return nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is income/expense/balance for a window with trend percentages
// against the previous window.
type Summary struct {
	Period       Period
	Window       Window
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Balance      decimal.Decimal
	SavingsRate  float64
	IncomeTrend  float64
	ExpenseTrend float64
	EntryCount   int
}

// Summary computes the period summary. division may be empty.
func (e *Engine) Summary(ctx context.Context, owner UserID, p Period, division Division) (*Summary, error) {
	if err := validateDivisionFilter(division); err != nil {
		return nil, err
	}
	p, w, err := e.currentWindow(p)
	if err != nil {
		return nil, err
	}
	prev := p.Previous(w)

	var sum Summary
	err = e.Store.View(ctx, func(s Store) error {
		cur, err := e.scan(ctx, s, owner, w, "", division)
		if err != nil {
			return err
		}
		before, err := e.scan(ctx, s, owner, prev, "", division)
		if err != nil {
			return err
		}
		income, expense := sumByKind(cur)
		prevIncome, prevExpense := sumByKind(before)

		sum = Summary{
			Period:       p,
			Window:       w,
			Income:       income,
			Expense:      expense,
			Balance:      income.Sub(expense),
			IncomeTrend:  percentChange(income, prevIncome),
			ExpenseTrend: percentChange(expense, prevExpense),
		}
		if income.IsPositive() {
			sum.SavingsRate = round1(income.Sub(expense).Div(income).Mul(hundred))
		}
		for _, en := range cur {
			if en.Kind != KindTransfer {
				sum.EntryCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, internal("summary", err)
	}
	return &sum, nil
}

// =============================================================================
// CATEGORY BREAKDOWN
// =============================================================================

// CategoryTotal is one row of a breakdown.
type CategoryTotal struct {
	CategoryID CategoryID
	Name       string
	Total      decimal.Decimal
	Count      int
	Percentage float64
}

// Breakdown groups kind entries in the window by category, largest first.
// kind defaults to expense.
func (e *Engine) Breakdown(ctx context.Context, owner UserID, p Period, kind Kind, division Division) ([]CategoryTotal, error) {
	if kind == "" {
		kind = KindExpense
	}
	if kind != KindIncome && kind != KindExpense {
		return nil, validationf("kind must be income or expense")
	}
	if err := validateDivisionFilter(division); err != nil {
		return nil, err
	}
	p, w, err := e.currentWindow(p)
	if err != nil {
		return nil, err
	}

	var rows []CategoryTotal
	err = e.Store.View(ctx, func(s Store) error {
		entries, err := e.scan(ctx, s, owner, w, kind, division)
		if err != nil {
			return err
		}
		names, err := categoryNames(ctx, s, owner)
		if err != nil {
			return err
		}
		rows = breakdown(entries, names)
		return nil
	})
	if err != nil {
		return nil, internal("category breakdown", err)
	}
	return rows, nil
}

func categoryNames(ctx context.Context, s Store, owner UserID) (map[CategoryID]string, error) {
	categories, err := s.ListCategories(ctx, owner)
	if err != nil {
		return nil, err
	}
	names := make(map[CategoryID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func breakdown(entries []Entry, names map[CategoryID]string) []CategoryTotal {
	byCategory := make(map[CategoryID]*CategoryTotal)
	grand := decimal.Zero
	for _, en := range entries {
		row, ok := byCategory[en.CategoryID]
		if !ok {
			name := names[en.CategoryID]
			if name == "" {
				name = "Uncategorized"
			}
			row = &CategoryTotal{CategoryID: en.CategoryID, Name: name, Total: decimal.Zero}
			byCategory[en.CategoryID] = row
		}
		row.Total = row.Total.Add(en.Amount)
		row.Count++
		grand = grand.Add(en.Amount)
	}

	rows := make([]CategoryTotal, 0, len(byCategory))
	for _, row := range byCategory {
		if grand.IsPositive() {
			row.Percentage = round1(row.Total.Div(grand).Mul(hundred))
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Total.Equal(rows[j].Total) {
			return rows[i].Total.GreaterThan(rows[j].Total)
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows
}

// =============================================================================
// DAILY TREND
// =============================================================================

// DayPoint is one calendar day of a trend series.
type DayPoint struct {
	Date    time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// Trend returns one row per calendar day in the window, zero-activity days
// included.
func (e *Engine) Trend(ctx context.Context, owner UserID, p Period, division Division) ([]DayPoint, error) {
	if err := validateDivisionFilter(division); err != nil {
		return nil, err
	}
	p, w, err := e.currentWindow(p)
	if err != nil {
		return nil, err
	}
	loc := e.location()

	var points []DayPoint
	err = e.Store.View(ctx, func(s Store) error {
		entries, err := e.scan(ctx, s, owner, w, "", division)
		if err != nil {
			return err
		}

		days := w.Days()
		points = make([]DayPoint, len(days))
		index := make(map[string]int, len(days))
		for i, d := range days {
			points[i] = DayPoint{Date: d, Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
			index[d.Format(time.DateOnly)] = i
		}
		for _, en := range entries {
			i, ok := index[en.Date.In(loc).Format(time.DateOnly)]
			if !ok {
				continue
			}
			switch en.Kind {
			case KindIncome:
				points[i].Income = points[i].Income.Add(en.Amount)
			case KindExpense:
				points[i].Expense = points[i].Expense.Add(en.Amount)
			}
		}
		for i := range points {
			points[i].Net = points[i].Income.Sub(points[i].Expense)
		}
		return nil
	})
	if err != nil {
		return nil, internal("daily trend", err)
	}
	return points, nil
}

// =============================================================================
// BUDGET UTILIZATION
// =============================================================================

type BudgetStatus string

const (
	BudgetNormal   BudgetStatus = "normal"
	BudgetWarning  BudgetStatus = "warning"
	BudgetExceeded BudgetStatus = "exceeded"
)

var (
	warningThreshold  = decimal.NewFromInt(80)
	exceededThreshold = decimal.NewFromInt(100)
)

// BudgetUsage is a budget measured against its current period window.
type BudgetUsage struct {
	Budget       Budget
	CategoryName string
	Window       Window
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	Percentage   float64
	Status       BudgetStatus
}

// BudgetUsage measures each of the owner's budgets, in record order,
// against expense entries in the budget's own current window.
func (e *Engine) BudgetUsage(ctx context.Context, owner UserID, division Division) ([]BudgetUsage, error) {
	if err := validateDivisionFilter(division); err != nil {
		return nil, err
	}
	var usage []BudgetUsage
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		usage, err = e.budgetUsage(ctx, s, owner, division)
		return err
	})
	if err != nil {
		return nil, internal("budget status", err)
	}
	return usage, nil
}

func (e *Engine) budgetUsage(ctx context.Context, s Store, owner UserID, division Division) ([]BudgetUsage, error) {
	budgets, err := s.ListBudgets(ctx, owner)
	if err != nil {
		return nil, err
	}
	names, err := categoryNames(ctx, s, owner)
	if err != nil {
		return nil, err
	}

	now := e.now().In(e.location())
	usage := make([]BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		w := PeriodFor(b.Period).WindowAt(now)
		entries, err := s.ListEntries(ctx, EntryFilter{
			OwnerID:    owner,
			From:       w.Start,
			To:         w.End,
			Kind:       KindExpense,
			Division:   division,
			CategoryID: b.CategoryID,
		})
		if err != nil {
			return nil, err
		}
		usage = append(usage, measureBudget(b, names[b.CategoryID], w, entries))
	}
	return usage, nil
}

func measureBudget(b Budget, name string, w Window, entries []Entry) BudgetUsage {
	spent := decimal.Zero
	for _, en := range entries {
		spent = spent.Add(en.Amount)
	}
	u := BudgetUsage{
		Budget:       b,
		CategoryName: name,
		Window:       w,
		Spent:        spent,
		Remaining:    decimal.Max(decimal.Zero, b.Amount.Sub(spent)),
		Status:       BudgetNormal,
	}
	if b.Amount.IsPositive() {
		pct := spent.Div(b.Amount).Mul(hundred)
		u.Percentage = round1(pct)
		switch {
		case pct.GreaterThanOrEqual(exceededThreshold):
			u.Status = BudgetExceeded
		case pct.GreaterThanOrEqual(warningThreshold):
			u.Status = BudgetWarning
		}
	}
	return u
}
