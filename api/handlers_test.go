/*
handlers_test.go - HTTP tests for the API layer

Tests for:
- Identity header enforcement
- Account setup, entries and balance updates
- Transfers
- Delete/restore and the mutation windows (403)
- Ownership (404), conflicts (409) and validation (400)
- Analytics endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
)

var apiStart = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type apiEnv struct {
	t      *testing.T
	clock  *ledger.ManualClock
	router http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	clock := ledger.NewManualClock(apiStart)
	engine := ledger.NewEngine(store.NewMemory())
	engine.Window.Clock = clock
	engine.Location = time.UTC
	seq := 0
	engine.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%05d", seq)
	}
	require.NoError(t, engine.Bootstrap(context.Background()))

	h := NewHandler(engine, stubPinger{})
	return &apiEnv{t: t, clock: clock, router: NewRouter(h, []string{"*"})}
}

// do sends a request as user (no header when user is empty) and decodes
// the JSON response into out when out is non-nil.
func (env *apiEnv) do(method, path, user string, body any, out any) int {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(env.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (env *apiEnv) setup(user string) (cash, bank AccountDTO) {
	env.t.Helper()
	var accounts []AccountDTO
	require.Equal(env.t, http.StatusOK, env.do(http.MethodPost, "/api/setup", user, nil, &accounts))
	require.Len(env.t, accounts, 2)
	return accounts[0], accounts[1]
}

func (env *apiEnv) categoryID(user, name string) string {
	env.t.Helper()
	var categories []CategoryDTO
	require.Equal(env.t, http.StatusOK, env.do(http.MethodGet, "/api/categories", user, nil, &categories))
	for _, c := range categories {
		if c.Name == name {
			return c.ID
		}
	}
	env.t.Fatalf("category %q not found", name)
	return ""
}

func (env *apiEnv) balance(user, id string) decimal.Decimal {
	env.t.Helper()
	var a AccountDTO
	require.Equal(env.t, http.StatusOK, env.do(http.MethodGet, "/api/accounts/"+id, user, nil, &a))
	return a.Balance
}

func (env *apiEnv) createEntry(user string, req CreateEntryRequest) EntryDTO {
	env.t.Helper()
	var e EntryDTO
	require.Equal(env.t, http.StatusCreated, env.do(http.MethodPost, "/api/transactions", user, req, &e))
	return e
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// IDENTITY AND HEALTH
// =============================================================================

func TestRequireUser_MissingHeader(t *testing.T) {
	env := newAPIEnv(t)

	var resp ErrorResponse
	code := env.do(http.MethodGet, "/api/accounts", "", nil, &resp)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])

	engine := ledger.NewEngine(store.NewMemory())
	down := NewRouter(NewHandler(engine, stubPinger{err: errors.New("db gone")}), nil)
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// =============================================================================
// ENTRIES AND BALANCES
// =============================================================================

func TestCreateEntry_UpdatesBalance(t *testing.T) {
	env := newAPIEnv(t)

	// GIVEN: A user with default accounts
	cash, _ := env.setup("alice")
	assert.Equal(t, "Cash", cash.Name)

	// WHEN: Income then expense are recorded on cash
	env.createEntry("alice", CreateEntryRequest{
		Type: "income", Amount: amount("1000"), CategoryID: env.categoryID("alice", "Salary"),
		AccountID: cash.ID, Date: "2025-03-10",
	})
	e := env.createEntry("alice", CreateEntryRequest{
		Type: "expense", Amount: amount("250.50"), CategoryID: env.categoryID("alice", "Food"),
		AccountID: cash.ID,
	})

	// THEN: The balance follows and the entry is editable
	assert.True(t, env.balance("alice", cash.ID).Equal(amount("749.50")))
	assert.True(t, e.Editable)
	assert.Equal(t, "personal", e.Division)

	// AND: The list filters by type
	var expenses []EntryDTO
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/transactions?type=expense", "alice", nil, &expenses))
	require.Len(t, expenses, 1)
	assert.Equal(t, e.ID, expenses[0].ID)

	var ranged []EntryDTO
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/transactions?from=2025-03-10&to=2025-03-10", "alice", nil, &ranged))
	assert.Len(t, ranged, 1)
}

func TestUpdateEntry_NetsBalance(t *testing.T) {
	env := newAPIEnv(t)
	cash, _ := env.setup("alice")
	e := env.createEntry("alice", CreateEntryRequest{
		Type: "expense", Amount: amount("100"), CategoryID: env.categoryID("alice", "Food"), AccountID: cash.ID,
	})

	newAmount := amount("40")
	var updated EntryDTO
	code := env.do(http.MethodPut, "/api/transactions/"+e.ID, "alice", UpdateEntryRequest{Amount: &newAmount}, &updated)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, updated.Amount.Equal(newAmount))
	assert.True(t, env.balance("alice", cash.ID).Equal(amount("-40")))
}

func TestCreateEntry_Validation(t *testing.T) {
	env := newAPIEnv(t)
	cash, _ := env.setup("alice")
	food := env.categoryID("alice", "Food")

	tests := []struct {
		name string
		req  CreateEntryRequest
	}{
		{"negative amount", CreateEntryRequest{Type: "expense", Amount: amount("-1"), CategoryID: food, AccountID: cash.ID}},
		{"transfer type", CreateEntryRequest{Type: "transfer", Amount: amount("1"), CategoryID: food, AccountID: cash.ID}},
		{"unknown division", CreateEntryRequest{Type: "expense", Amount: amount("1"), CategoryID: food, Division: "garage"}},
		{"bad date", CreateEntryRequest{Type: "expense", Amount: amount("1"), CategoryID: food, Date: "12/03/2025"}},
		{"category of another kind", CreateEntryRequest{Type: "income", Amount: amount("1"), CategoryID: food, AccountID: cash.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			code := env.do(http.MethodPost, "/api/transactions", "alice", tt.req, &resp)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, string(ledger.KindValidation), resp.Code)
		})
	}
	assert.True(t, env.balance("alice", cash.ID).IsZero())

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("{not json"))
	req.Header.Set(UserHeader, "alice")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransfer(t *testing.T) {
	env := newAPIEnv(t)
	cash, bank := env.setup("alice")

	var res TransferDTO
	code := env.do(http.MethodPost, "/api/accounts/transfer", "alice", TransferRequest{
		FromAccountID: bank.ID, ToAccountID: cash.ID, Amount: amount("300"),
	}, &res)

	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "withdrawal", res.Withdrawal.Leg)
	assert.Equal(t, "deposit", res.Deposit.Leg)
	assert.Equal(t, res.Deposit.ID, res.Withdrawal.LinkedEntryID)
	assert.Equal(t, res.Withdrawal.ID, res.Deposit.LinkedEntryID)
	assert.Equal(t, "Transfer to Cash", res.Withdrawal.Description)
	assert.True(t, env.balance("alice", bank.ID).Equal(amount("-300")))
	assert.True(t, env.balance("alice", cash.ID).Equal(amount("300")))

	var resp ErrorResponse
	code = env.do(http.MethodPost, "/api/accounts/transfer", "alice", TransferRequest{
		FromAccountID: cash.ID, ToAccountID: cash.ID, Amount: amount("1"),
	}, &resp)
	assert.Equal(t, http.StatusBadRequest, code)
}

// =============================================================================
// MUTATION WINDOWS
// =============================================================================

func TestDeleteRestore_UndoWindow(t *testing.T) {
	env := newAPIEnv(t)
	cash, _ := env.setup("alice")
	e := env.createEntry("alice", CreateEntryRequest{
		Type: "expense", Amount: amount("50"), CategoryID: env.categoryID("alice", "Food"), AccountID: cash.ID,
	})

	// WHEN: Deleted and restored within 30s
	var receipt DeletionDTO
	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/api/transactions/"+e.ID, "alice", nil, &receipt))
	assert.Equal(t, e.ID, receipt.ID)
	assert.True(t, env.balance("alice", cash.ID).IsZero())

	env.clock.Advance(10 * time.Second)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/transactions/"+e.ID+"/restore", "alice", nil, nil))
	assert.True(t, env.balance("alice", cash.ID).Equal(amount("-50")))

	// WHEN: Deleted again and restore comes too late
	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/api/transactions/"+e.ID, "alice", nil, nil))
	env.clock.Advance(31 * time.Second)

	var resp ErrorResponse
	code := env.do(http.MethodPost, "/api/transactions/"+e.ID+"/restore", "alice", nil, &resp)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(ledger.KindUndoExpired), resp.Code)
	assert.True(t, env.balance("alice", cash.ID).IsZero())
}

func TestEditWindow_Forbidden(t *testing.T) {
	env := newAPIEnv(t)
	cash, _ := env.setup("alice")
	e := env.createEntry("alice", CreateEntryRequest{
		Type: "expense", Amount: amount("50"), CategoryID: env.categoryID("alice", "Food"), AccountID: cash.ID,
	})

	env.clock.Advance(12*time.Hour + time.Minute)

	var got EntryDTO
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/transactions/"+e.ID, "alice", nil, &got))
	assert.False(t, got.Editable)

	desc := "late"
	var resp ErrorResponse
	code := env.do(http.MethodPut, "/api/transactions/"+e.ID, "alice", UpdateEntryRequest{Description: &desc}, &resp)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(ledger.KindEditWindowExpired), resp.Code)

	code = env.do(http.MethodDelete, "/api/transactions/"+e.ID, "alice", nil, &resp)
	assert.Equal(t, http.StatusForbidden, code)
}

// =============================================================================
// OWNERSHIP AND CONFLICTS
// =============================================================================

func TestForeignOwner_NotFound(t *testing.T) {
	env := newAPIEnv(t)
	cash, _ := env.setup("alice")
	env.setup("bob")
	e := env.createEntry("alice", CreateEntryRequest{
		Type: "expense", Amount: amount("5"), CategoryID: env.categoryID("alice", "Food"), AccountID: cash.ID,
	})

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/accounts/"+cash.ID, "bob", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/transactions/"+e.ID, "bob", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/transactions/"+e.ID, "bob", nil, nil))

	var bobs []EntryDTO
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/transactions", "bob", nil, &bobs))
	assert.Empty(t, bobs)
	assert.True(t, env.balance("alice", cash.ID).Equal(amount("-5")))
}

func TestCreateAccount_DuplicateNameConflict(t *testing.T) {
	env := newAPIEnv(t)
	env.setup("alice")

	var resp ErrorResponse
	code := env.do(http.MethodPost, "/api/accounts", "alice", CreateAccountRequest{Name: "cash", Type: "cash"}, &resp)

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(ledger.KindConflict), resp.Code)

	var created AccountDTO
	code = env.do(http.MethodPost, "/api/accounts", "alice", CreateAccountRequest{Name: "Wallet", Type: "wallet", Balance: amount("20")}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, created.Balance.Equal(amount("20")))

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/accounts/"+created.ID, "alice", nil, nil))
	var accounts []AccountDTO
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/accounts", "alice", nil, &accounts))
	assert.Len(t, accounts, 2)
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestAnalytics(t *testing.T) {
	env := newAPIEnv(t)
	cash, _ := env.setup("alice")
	food := env.categoryID("alice", "Food")
	env.createEntry("alice", CreateEntryRequest{Type: "income", Amount: amount("1000"), CategoryID: env.categoryID("alice", "Salary"), AccountID: cash.ID, Date: "2025-03-01"})
	env.createEntry("alice", CreateEntryRequest{Type: "expense", Amount: amount("300"), CategoryID: food, AccountID: cash.ID, Date: "2025-03-05"})

	t.Run("summary", func(t *testing.T) {
		var s SummaryDTO
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/analytics/summary?period=month", "alice", nil, &s))
		assert.Equal(t, "month", s.Period)
		assert.True(t, s.Income.Equal(amount("1000")))
		assert.True(t, s.Expense.Equal(amount("300")))
		assert.True(t, s.Balance.Equal(amount("700")))
		assert.InDelta(t, 70.0, s.SavingsRate, 0.001)
		assert.Equal(t, 2, s.Count)
	})

	t.Run("breakdown", func(t *testing.T) {
		var rows []CategoryTotalDTO
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/analytics/breakdown?type=expense", "alice", nil, &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, food, rows[0].CategoryID)
		assert.InDelta(t, 100.0, rows[0].Percentage, 0.001)
	})

	t.Run("trend", func(t *testing.T) {
		var points []DayPointDTO
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/analytics/trend?period=week", "alice", nil, &points))
		assert.Len(t, points, 7)
		assert.Equal(t, "2025-03-09", points[0].Date)
	})

	t.Run("insight", func(t *testing.T) {
		var in InsightDTO
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/analytics/insight", "alice", nil, &in))
		assert.NotEmpty(t, in.Type)
		assert.NotEmpty(t, in.Message)
	})

	t.Run("budget status", func(t *testing.T) {
		var b BudgetDTO
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/budgets", "alice",
			SetBudgetRequest{CategoryID: food, Period: "monthly", Amount: amount("350")}, &b))

		var statuses []BudgetStatusDTO
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/budgets/status", "alice", nil, &statuses))
		require.Len(t, statuses, 1)
		assert.Equal(t, "warning", statuses[0].Status)
		assert.True(t, statuses[0].Remaining.Equal(amount("50")))
	})

	t.Run("unknown period", func(t *testing.T) {
		var resp ErrorResponse
		code := env.do(http.MethodGet, "/api/analytics/summary?period=quarter", "alice", nil, &resp)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, string(ledger.KindValidation), resp.Code)
	})
}

func TestGoals(t *testing.T) {
	env := newAPIEnv(t)

	var g GoalDTO
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/goals", "alice",
		CreateGoalRequest{Name: "Bike", Target: amount("500"), Deadline: "2025-12-31"}, &g))
	assert.False(t, g.Reached)

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/goals/"+g.ID+"/contribute", "alice",
		ContributeRequest{Amount: amount("500")}, &g))
	assert.True(t, g.Reached)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/goals/"+g.ID+"/contribute", "bob",
		ContributeRequest{Amount: amount("1")}, nil))
}
