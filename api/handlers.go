/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine.

ENDPOINTS:
  Accounts:
    POST   /api/setup                      Default accounts for the caller
    GET    /api/accounts                   List active accounts
    POST   /api/accounts                   Create account
    POST   /api/accounts/transfer          Transfer between two accounts
    GET    /api/accounts/{id}              Get account
    PUT    /api/accounts/{id}              Override name/type/balance
    DELETE /api/accounts/{id}              Soft-delete account

  Transactions:
    GET    /api/transactions               List (?type&division&account_id&from&to)
    POST   /api/transactions               Record income or expense
    GET    /api/transactions/{id}          Get entry
    PUT    /api/transactions/{id}          Edit (within 12h of creation)
    DELETE /api/transactions/{id}          Soft-delete (within 12h of creation)
    POST   /api/transactions/{id}/restore  Undo delete (within 30s)

  Catalog:
    GET/POST /api/categories
    GET/POST /api/budgets, GET /api/budgets/status
    GET/POST /api/goals, POST /api/goals/{id}/contribute

  Analytics:
    GET    /api/analytics/{summary,breakdown,trend,insight}

IDENTITY:
  The caller is the X-User-ID header. Authentication happens upstream; a
  request without the header is rejected with 401.

ERROR HANDLING:
  Engine error kinds map to HTTP status:
  - 400: VALIDATION_ERROR
  - 403: EDIT_WINDOW_EXPIRED, UNDO_EXPIRED
  - 404: NOT_FOUND (also for records owned by someone else)
  - 409: CONFLICT
  - 500: anything else (logged with the request id)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/ledger-engine/ledger"
)

// UserHeader carries the caller's identity.
const UserHeader = "X-User-ID"

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Health Pinger
}

// NewHandler creates a new handler around engine.
func NewHandler(engine *ledger.Engine, health Pinger) *Handler {
	return &Handler{Engine: engine, Health: health}
}

type ownerKey struct{}

// requireUser rejects requests without a caller identity and stores it on
// the request context.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(UserHeader))
		if owner == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error: "missing " + UserHeader + " header",
				Code:  "UNAUTHORIZED",
			})
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, ledger.UserID(owner))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func owner(r *http.Request) ledger.UserID {
	id, _ := r.Context().Value(ownerKey{}).(ledger.UserID)
	return id
}

// Healthz reports whether storage is reachable.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// SetupUser creates the caller's default accounts.
// POST /api/setup
func (h *Handler) SetupUser(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Engine.SetupUser(r.Context(), owner(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTOs(accounts))
}

// ListAccounts returns the caller's active accounts.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Engine.ListAccounts(r.Context(), owner(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTOs(accounts))
}

// CreateAccount creates an account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Engine.CreateAccount(r.Context(), owner(r), ledger.NewAccount{
		Name:    req.Name,
		Type:    ledger.AccountType(req.Type),
		Balance: req.Balance,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*a))
}

// GetAccount returns one account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Engine.GetAccount(r.Context(), owner(r), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*a))
}

// UpdateAccount overrides account fields. A balance here replaces the
// stored value outright.
// PUT /api/accounts/{id}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if !decode(w, r, &req) {
		return
	}
	patch := ledger.AccountPatch{Name: req.Name, Balance: req.Balance}
	if req.Type != nil {
		t := ledger.AccountType(*req.Type)
		patch.Type = &t
	}
	a, err := h.Engine.UpdateAccount(r.Context(), owner(r), ledger.AccountID(chi.URLParam(r, "id")), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*a))
}

// DeleteAccount soft-deletes an account.
// DELETE /api/accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteAccount(r.Context(), owner(r), ledger.AccountID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transfer moves money between two of the caller's accounts.
// POST /api/accounts/transfer
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		writeValidation(w, err)
		return
	}
	res, err := h.Engine.Transfer(r.Context(), owner(r), ledger.TransferRequest{
		From:        ledger.AccountID(req.FromAccountID),
		To:          ledger.AccountID(req.ToAccountID),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TransferDTO{
		Withdrawal: h.toEntryDTO(res.Withdrawal),
		Deposit:    h.toEntryDTO(res.Deposit),
	})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListEntries returns the caller's non-deleted entries.
// GET /api/transactions?type=&division=&account_id=&from=&to=
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.EntryFilter{
		Kind:      ledger.Kind(firstNonEmpty(q.Get("type"), q.Get("kind"))),
		Division:  ledger.Division(q.Get("division")),
		AccountID: ledger.AccountID(q.Get("account_id")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeValidation(w, fmt.Errorf("unknown type %q", filter.Kind))
		return
	}
	if filter.Division != "" && !filter.Division.Valid() {
		writeValidation(w, fmt.Errorf("unknown division %q", filter.Division))
		return
	}

	var err error
	if filter.From, err = h.parseDate(q.Get("from")); err != nil {
		writeValidation(w, err)
		return
	}
	if filter.To, err = h.parseDate(q.Get("to")); err != nil {
		writeValidation(w, err)
		return
	}
	// A bare date as the upper bound includes that whole day.
	if to := q.Get("to"); len(to) == len(time.DateOnly) {
		filter.To = filter.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	entries, err := h.Engine.ListEntries(r.Context(), owner(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEntryDTOs(entries))
}

// CreateEntry records an income or expense.
// POST /api/transactions
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		writeValidation(w, err)
		return
	}
	e, err := h.Engine.CreateEntry(r.Context(), owner(r), ledger.NewEntry{
		Kind:        ledger.Kind(req.Type),
		Amount:      req.Amount,
		CategoryID:  ledger.CategoryID(req.CategoryID),
		Description: req.Description,
		Date:        date,
		Division:    ledger.Division(req.Division),
		AccountID:   ledger.AccountID(req.AccountID),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toEntryDTO(*e))
}

// GetEntry returns one entry.
// GET /api/transactions/{id}
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.Engine.GetEntry(r.Context(), owner(r), ledger.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEntryDTO(*e))
}

// UpdateEntry edits an entry inside its edit window.
// PUT /api/transactions/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if !decode(w, r, &req) {
		return
	}
	patch := ledger.EntryPatch{
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Type != nil {
		k := ledger.Kind(*req.Type)
		patch.Kind = &k
	}
	if req.CategoryID != nil {
		c := ledger.CategoryID(*req.CategoryID)
		patch.CategoryID = &c
	}
	if req.Division != nil {
		d := ledger.Division(*req.Division)
		patch.Division = &d
	}
	if req.AccountID != nil {
		a := ledger.AccountID(*req.AccountID)
		patch.AccountID = &a
	}
	if req.Date != nil {
		date, err := h.parseDate(*req.Date)
		if err != nil || date.IsZero() {
			writeValidation(w, fmt.Errorf("invalid date %q", *req.Date))
			return
		}
		patch.Date = &date
	}

	e, err := h.Engine.UpdateEntry(r.Context(), owner(r), ledger.EntryID(chi.URLParam(r, "id")), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEntryDTO(*e))
}

// DeleteEntry soft-deletes an entry and reverses its balance effect.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.Engine.DeleteEntry(r.Context(), owner(r), ledger.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletionDTO{
		ID:            string(receipt.EntryID),
		LinkedEntryID: string(receipt.LinkedEntryID),
		DeletedAt:     receipt.DeletedAt.Format(time.RFC3339Nano),
		UndoUntil:     receipt.UndoUntil.Format(time.RFC3339Nano),
	})
}

// RestoreEntry undoes a recent delete.
// POST /api/transactions/{id}/restore
func (h *Handler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.Engine.RestoreEntry(r.Context(), owner(r), ledger.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEntryDTO(*e))
}

// =============================================================================
// CATEGORY / BUDGET / GOAL HANDLERS
// =============================================================================

// ListCategories returns system categories plus the caller's own.
// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Engine.ListCategories(r.Context(), owner(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a category for the caller.
// POST /api/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Engine.CreateCategory(r.Context(), owner(r), req.Name, ledger.Kind(req.Type))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(*c))
}

// ListBudgets returns the caller's budgets in record order.
// GET /api/budgets
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Engine.ListBudgets(r.Context(), owner(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetBudget creates or replaces the budget for a category.
// POST /api/budgets
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req SetBudgetRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.Engine.SetBudget(r.Context(), owner(r), ledger.CategoryID(req.CategoryID),
		ledger.BudgetPeriod(req.Period), req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(*b))
}

// BudgetStatus measures every budget against its current window.
// GET /api/budgets/status?division=
func (h *Handler) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Engine.BudgetUsage(r.Context(), owner(r), ledger.Division(r.URL.Query().Get("division")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]BudgetStatusDTO, len(usage))
	for i, u := range usage {
		dtos[i] = BudgetStatusDTO{
			BudgetDTO:    toBudgetDTO(u.Budget),
			CategoryName: u.CategoryName,
			PeriodStart:  u.Window.Start.Format(time.RFC3339),
			PeriodEnd:    u.Window.End.Format(time.RFC3339),
			Spent:        u.Spent,
			Remaining:    u.Remaining,
			Percentage:   u.Percentage,
			Status:       string(u.Status),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListGoals returns the caller's goals.
// GET /api/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.Engine.ListGoals(r.Context(), owner(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]GoalDTO, len(goals))
	for i, g := range goals {
		dtos[i] = toGoalDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGoal creates a savings goal.
// POST /api/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if !decode(w, r, &req) {
		return
	}
	var deadline *time.Time
	if req.Deadline != "" {
		d, err := h.parseDate(req.Deadline)
		if err != nil {
			writeValidation(w, err)
			return
		}
		deadline = &d
	}
	g, err := h.Engine.CreateGoal(r.Context(), owner(r), req.Name, req.Target, deadline)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(*g))
}

// Contribute adds to a goal's saved amount.
// POST /api/goals/{id}/contribute
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req ContributeRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := h.Engine.Contribute(r.Context(), owner(r), ledger.GoalID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(*g))
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// analyticsParams reads ?period= and ?division=.
func analyticsParams(r *http.Request) (ledger.Period, ledger.Division, error) {
	p, err := ledger.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return "", "", err
	}
	return p, ledger.Division(r.URL.Query().Get("division")), nil
}

// Summary returns income, expense and balance for the period.
// GET /api/analytics/summary?period=&division=
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	p, division, err := analyticsParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.Engine.Summary(r.Context(), owner(r), p, division)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		Period:       string(s.Period),
		PeriodStart:  s.Window.Start.Format(time.RFC3339),
		PeriodEnd:    s.Window.End.Format(time.RFC3339),
		Income:       s.Income,
		Expense:      s.Expense,
		Balance:      s.Balance,
		SavingsRate:  s.SavingsRate,
		IncomeTrend:  s.IncomeTrend,
		ExpenseTrend: s.ExpenseTrend,
		Count:        s.EntryCount,
	})
}

// Breakdown groups the period's entries by category.
// GET /api/analytics/breakdown?period=&type=&division=
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	p, division, err := analyticsParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	kind := ledger.Kind(firstNonEmpty(q.Get("type"), q.Get("kind")))
	rows, err := h.Engine.Breakdown(r.Context(), owner(r), p, kind, division)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]CategoryTotalDTO, len(rows))
	for i, row := range rows {
		dtos[i] = CategoryTotalDTO{
			CategoryID: string(row.CategoryID),
			Name:       row.Name,
			Total:      row.Total,
			Count:      row.Count,
			Percentage: row.Percentage,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Trend returns one point per day of the period.
// GET /api/analytics/trend?period=&division=
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	p, division, err := analyticsParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	points, err := h.Engine.Trend(r.Context(), owner(r), p, division)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]DayPointDTO, len(points))
	for i, pt := range points {
		dtos[i] = DayPointDTO{
			Date:    pt.Date.Format(time.DateOnly),
			Income:  pt.Income,
			Expense: pt.Expense,
			Net:     pt.Net,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Insight returns the headline insight for the period.
// GET /api/analytics/insight?period=&division=
func (h *Handler) Insight(w http.ResponseWriter, r *http.Request) {
	p, division, err := analyticsParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := h.Engine.Insight(r.Context(), owner(r), p, division)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InsightDTO{
		Type:       string(in.Type),
		Severity:   string(in.Severity),
		Title:      in.Title,
		Message:    in.Message,
		CategoryID: string(in.CategoryID),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code ledger.ErrorKind, message string, err error) {
	resp := ErrorResponse{Error: message, Code: string(code)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeValidation(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, ledger.KindValidation, "Invalid request", err)
}

// statusFor maps an engine error kind to its HTTP status.
func statusFor(kind ledger.ErrorKind) int {
	switch kind {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindEditWindowExpired, ledger.KindUndoExpired:
		return http.StatusForbidden
	case ledger.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes an engine error. Internal failures are logged and their
// cause is not exposed.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s (request %s): %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
		writeError(w, status, ledger.KindInternal, "Internal error", nil)
		return
	}

	message := err.Error()
	var le *ledger.Error
	if errors.As(err, &le) {
		message = le.Message
	}
	writeError(w, status, kind, message, nil)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ledger.KindValidation, "Invalid request body", err)
		return false
	}
	return true
}

// parseDate accepts YYYY-MM-DD (midnight in the engine zone) or RFC3339.
// An empty string yields the zero time.
func (h *Handler) parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	loc := h.Engine.Location
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or RFC3339)", s)
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
