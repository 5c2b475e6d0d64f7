package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightInfo    InsightType = "info"
	InsightSuccess InsightType = "success"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Insight is the single headline surfaced for a period.
type Insight struct {
	Type       InsightType
	Severity   Severity
	Title      string
	Message    string
	CategoryID CategoryID
}

// expenseSwing is the period-over-period expense change, in percent, that
// earns a headline.
const expenseSwing = 20

// Insight picks one headline, first match wins:
//  1. a budget at or over 100%
//  2. a budget at or over 80%
//  3. expenses moved more than 20% vs. the previous period
//  4. the top spending category in the window
//  5. a static fallback
//
// Budgets are checked in record order. It is recomputed on every call.
func (e *Engine) Insight(ctx context.Context, owner UserID, p Period, division Division) (*Insight, error) {
	if err := validateDivisionFilter(division); err != nil {
		return nil, err
	}
	p, w, err := e.currentWindow(p)
	if err != nil {
		return nil, err
	}
	prev := p.Previous(w)

	var insight *Insight
	err = e.Store.View(ctx, func(s Store) error {
		usage, err := e.budgetUsage(ctx, s, owner, division)
		if err != nil {
			return err
		}
		if in := budgetInsight(usage, BudgetExceeded); in != nil {
			insight = in
			return nil
		}
		if in := budgetInsight(usage, BudgetWarning); in != nil {
			insight = in
			return nil
		}

		cur, err := e.scan(ctx, s, owner, w, KindExpense, division)
		if err != nil {
			return err
		}
		before, err := e.scan(ctx, s, owner, prev, KindExpense, division)
		if err != nil {
			return err
		}
		_, expense := sumByKind(cur)
		_, prevExpense := sumByKind(before)
		if in := swingInsight(p, expense, prevExpense); in != nil {
			insight = in
			return nil
		}

		names, err := categoryNames(ctx, s, owner)
		if err != nil {
			return err
		}
		if rows := breakdown(cur, names); len(rows) > 0 {
			top := rows[0]
			insight = &Insight{
				Type:       InsightInfo,
				Severity:   SeverityLow,
				Title:      "Top spending category",
				Message:    fmt.Sprintf("%s is your highest spending category this %s at %s.", top.Name, p, top.Total.StringFixed(2)),
				CategoryID: top.CategoryID,
			}
			return nil
		}

		insight = &Insight{
			Type:     InsightInfo,
			Severity: SeverityLow,
			Title:    "Keep tracking",
			Message:  "Add your income and expenses to start seeing insights.",
		}
		return nil
	})
	if err != nil {
		return nil, internal("insight", err)
	}
	return insight, nil
}

func budgetInsight(usage []BudgetUsage, status BudgetStatus) *Insight {
	for _, u := range usage {
		if u.Status != status {
			continue
		}
		name := u.CategoryName
		if name == "" {
			name = string(u.Budget.CategoryID)
		}
		if status == BudgetExceeded {
			return &Insight{
				Type:       InsightWarning,
				Severity:   SeverityHigh,
				Title:      "Budget exceeded",
				Message:    fmt.Sprintf("You are %.1f%% over your %s budget.", u.Percentage-100, name),
				CategoryID: u.Budget.CategoryID,
			}
		}
		return &Insight{
			Type:       InsightWarning,
			Severity:   SeverityMedium,
			Title:      "Budget almost used",
			Message:    fmt.Sprintf("You have used %.1f%% of your %s budget.", u.Percentage, name),
			CategoryID: u.Budget.CategoryID,
		}
	}
	return nil
}

func swingInsight(p Period, expense, prevExpense decimal.Decimal) *Insight {
	change := percentChange(expense, prevExpense)
	switch {
	case change > expenseSwing:
		return &Insight{
			Type:     InsightInfo,
			Severity: SeverityMedium,
			Title:    "Spending is up",
			Message:  fmt.Sprintf("You spent %.1f%% more than last %s.", change, p),
		}
	case change < -expenseSwing:
		return &Insight{
			Type:     InsightSuccess,
			Severity: SeverityLow,
			Title:    "Spending is down",
			Message:  fmt.Sprintf("You spent %.1f%% less than last %s.", -change, p),
		}
	}
	return nil
}
