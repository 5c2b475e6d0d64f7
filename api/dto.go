/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are decimal.Decimal. They encode as JSON strings ("12.50") and
  decode from either strings or numbers.

DATES:
  Entry dates are accepted as YYYY-MM-DD (midnight in the engine zone) or
  RFC3339. Responses use RFC3339; trend days use YYYY-MM-DD.

VALIDATION:
  Validation is done by the ledger engine, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// UpdateAccountRequest overrides account fields. Omitted fields are kept.
type UpdateAccountRequest struct {
	Name    *string          `json:"name,omitempty"`
	Type    *string          `json:"type,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// TransferRequest moves money between two of the caller's accounts.
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	Date          string          `json:"date,omitempty"`
}

// TransferDTO holds both legs of a committed transfer.
type TransferDTO struct {
	Withdrawal EntryDTO `json:"withdrawal"`
	Deposit    EntryDTO `json:"deposit"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

func toAccountDTOs(accounts []ledger.Account) []AccountDTO {
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	return dtos
}

// =============================================================================
// ENTRIES
// =============================================================================

// EntryDTO represents a ledger entry in API responses.
type EntryDTO struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    string          `json:"category_id"`
	Description   string          `json:"description"`
	Date          string          `json:"date"`
	Division      string          `json:"division"`
	AccountID     string          `json:"account_id,omitempty"`
	LinkedEntryID string          `json:"linked_transaction_id,omitempty"`
	Leg           string          `json:"leg,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
	Editable      bool            `json:"editable"`
}

// CreateEntryRequest is the request to record an income or expense.
type CreateEntryRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"`
	Division    string          `json:"division,omitempty"`
	AccountID   string          `json:"account_id,omitempty"`
}

// UpdateEntryRequest is a partial update. Omitted fields are kept; an
// empty account_id detaches the entry from its account.
type UpdateEntryRequest struct {
	Type        *string          `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	CategoryID  *string          `json:"category_id,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *string          `json:"date,omitempty"`
	Division    *string          `json:"division,omitempty"`
	AccountID   *string          `json:"account_id,omitempty"`
}

// DeletionDTO is returned by a soft-delete.
type DeletionDTO struct {
	ID            string `json:"id"`
	LinkedEntryID string `json:"linked_transaction_id,omitempty"`
	DeletedAt     string `json:"deleted_at"`
	UndoUntil     string `json:"undo_until"`
}

func (h *Handler) toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:            string(e.ID),
		Type:          string(e.Kind),
		Amount:        e.Amount,
		CategoryID:    string(e.CategoryID),
		Description:   e.Description,
		Date:          e.Date.Format(time.RFC3339),
		Division:      string(e.Division),
		AccountID:     string(e.AccountID),
		LinkedEntryID: string(e.LinkedEntryID),
		Leg:           string(e.Leg),
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     e.UpdatedAt.Format(time.RFC3339),
		Editable:      h.Engine.Window.CanEdit(e.CreatedAt),
	}
}

func (h *Handler) toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = h.toEntryDTO(e)
	}
	return dtos
}

// =============================================================================
// CATEGORIES, BUDGETS, GOALS
// =============================================================================

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
}

// CreateCategoryRequest is the request to create an owner category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// BudgetDTO represents a budget in API responses.
type BudgetDTO struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	Period     string          `json:"period"`
	Amount     decimal.Decimal `json:"amount"`
}

// SetBudgetRequest creates or replaces the budget for a category.
type SetBudgetRequest struct {
	CategoryID string          `json:"category_id"`
	Period     string          `json:"period"`
	Amount     decimal.Decimal `json:"amount"`
}

// BudgetStatusDTO is a budget measured against its current window.
type BudgetStatusDTO struct {
	BudgetDTO
	CategoryName string          `json:"category_name"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    string          `json:"period_end"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Percentage   float64         `json:"percentage"`
	Status       string          `json:"status"`
}

// GoalDTO represents a savings goal in API responses.
type GoalDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target_amount"`
	Current  decimal.Decimal `json:"current_amount"`
	Deadline string          `json:"deadline,omitempty"`
	Reached  bool            `json:"reached"`
}

// CreateGoalRequest is the request to create a goal.
type CreateGoalRequest struct {
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target_amount"`
	Deadline string          `json:"deadline,omitempty"`
}

// ContributeRequest adds money to a goal.
type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func toCategoryDTO(c ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Type:      string(c.Kind),
		IsDefault: c.IsDefault,
	}
}

func toBudgetDTO(b ledger.Budget) BudgetDTO {
	return BudgetDTO{
		ID:         string(b.ID),
		CategoryID: string(b.CategoryID),
		Period:     string(b.Period),
		Amount:     b.Amount,
	}
}

func toGoalDTO(g ledger.Goal) GoalDTO {
	dto := GoalDTO{
		ID:      string(g.ID),
		Name:    g.Name,
		Target:  g.Target,
		Current: g.Current,
		Reached: g.Reached(),
	}
	if g.Deadline != nil {
		dto.Deadline = g.Deadline.Format(time.DateOnly)
	}
	return dto
}

// =============================================================================
// ANALYTICS
// =============================================================================

// SummaryDTO is the period summary.
type SummaryDTO struct {
	Period       string          `json:"period"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    string          `json:"period_end"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Balance      decimal.Decimal `json:"balance"`
	SavingsRate  float64         `json:"savings_rate"`
	IncomeTrend  float64         `json:"income_trend"`
	ExpenseTrend float64         `json:"expense_trend"`
	Count        int             `json:"transaction_count"`
}

// CategoryTotalDTO is one breakdown row.
type CategoryTotalDTO struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// DayPointDTO is one day of the trend series.
type DayPointDTO struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// InsightDTO is the headline insight.
type InsightDTO struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	CategoryID string `json:"category_id,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
