package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"smartatm/backend/services/atm-service/internal/atm"
	"smartatm/backend/services/atm-service/internal/bank"
	"smartatm/backend/services/atm-service/internal/credential"
	"smartatm/backend/services/atm-service/internal/http/handlers"
	"smartatm/backend/services/atm-service/internal/http/middleware"
	"smartatm/backend/services/atm-service/internal/models"
	"smartatm/backend/services/atm-service/internal/service"
)

type fixture struct {
	handler http.Handler
	store   *bank.MemoryBank
	machine *atm.Machine
	tokens  *service.TokenService
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	store := bank.NewMemoryBank(credential.NewBcryptHasher(bcrypt.MinCost))
	_, err := store.OpenAccount(context.Background(), bank.NewAccount{
		CardNumber: "1234",
		HolderName: "Demo",
		PIN:        "4321",
		Biometric:  "B1",
		Balance:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	guarded := bank.NewGuarded(store, bank.BreakerSettings{}, logger)
	machine := atm.New(guarded, logger)
	tokens := service.NewTokenService("test-secret", time.Minute)
	handler := NewRouter(Routes{
		Health:           handlers.NewHealthHandler(guarded),
		Metrics:          promhttp.Handler(),
		Session:          handlers.NewSessionHandler(machine),
		AdminAuth:        middleware.RequireRole(tokens, service.RoleAdmin),
		ListAccounts:     handlers.NewListAccountsHandler(store, logger),
		CreateAccount:    handlers.NewCreateAccountHandler(store, logger),
		DeleteAccount:    handlers.NewDeleteAccountHandler(store, logger),
		ListTransactions: handlers.NewListTransactionsHandler(store, logger),
	}, logger)
	return &fixture{handler: handler, store: store, machine: machine, tokens: tokens, logs: logs}
}

func (f *fixture) do(t *testing.T, method, target, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if role != "" {
		token, err := f.tokens.GenerateToken("tester", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOpsEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "account_store": "closed"}, decode(t, rec))

	rec = f.do(t, http.MethodGet, "/session", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"state": "idle"}, decode(t, rec))

	_, err := f.machine.InsertCard(context.Background(), "1234")
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/session", "", "")
	body := decode(t, rec)
	assert.Equal(t, "card_inserted", body["state"])
	assert.Equal(t, "****", body["card"])
	assert.NotEmpty(t, body["session_id"])

	rec = f.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "atm_fsm_transitions_total")
}

func TestAdminRequiresToken(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/admin/accounts", "", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/admin/accounts", "", "viewer").Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAccountLifecycle(t *testing.T) {
	f := newFixture(t)
	const admin = service.RoleAdmin

	rec := f.do(t, http.MethodPost, "/admin/accounts", `{"card_number":"123","holder_name":"A","pin":"1111","biometric_code":"X","balance":1}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "card number must be exactly 16 digits", body["error"])
	assert.Equal(t, "invalid_account", body["code"])

	rec = f.do(t, http.MethodPost, "/admin/accounts", `{"card_number":"1111222233334444","holder_name":"Ada","pin":"1111","biometric_code":"FP-9","balance":"1.005"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "balance must be in whole cents", decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/admin/accounts", `{"card_number":"1111222233334444","holder_name":"Ada","pin":"1111","biometric_code":"FP-9","balance":-5}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	newAccount := `{"card_number":"1111222233334444","holder_name":"Ada","pin":"1111","biometric_code":"FP-9","balance":"250.5"}`
	rec = f.do(t, http.MethodPost, "/admin/accounts", newAccount, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "250.50", body["balance"])
	assert.NotContains(t, rec.Body.String(), "pin")

	rec = f.do(t, http.MethodPost, "/admin/accounts", newAccount, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/accounts", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decode(t, rec)["accounts"].([]interface{})
	require.Len(t, accounts, 2)
	assert.Equal(t, "Ada", accounts[0].(map[string]interface{})["holder_name"])

	_, err := f.store.LogTransaction(context.Background(), "1111222233334444", models.KindDeposit, decimal.NewFromInt(3))
	require.NoError(t, err)

	rec = f.do(t, http.MethodDelete, "/admin/accounts/1111222233334444", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["removed_transactions"])

	rec = f.do(t, http.MethodDelete, "/admin/accounts/1111222233334444", "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "account_not_found", decode(t, rec)["code"])

	for _, msg := range []string{"account opened", "account closed"} {
		entries := f.logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, "tester", entries[0].ContextMap()["operator"], msg)
		assert.Equal(t, "************4444", entries[0].ContextMap()["card"], msg)
	}
}

type fixedBreaker gobreaker.State

func (b fixedBreaker) State() gobreaker.State { return gobreaker.State(b) }

func TestHealthFollowsBreaker(t *testing.T) {
	for state, want := range map[gobreaker.State]int{
		gobreaker.StateClosed:   http.StatusOK,
		gobreaker.StateHalfOpen: http.StatusOK,
		gobreaker.StateOpen:     http.StatusServiceUnavailable,
	} {
		handler := NewRouter(Routes{Health: handlers.NewHealthHandler(fixedBreaker(state))}, zap.NewNop())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, want, rec.Code, state.String())
		assert.Contains(t, rec.Body.String(), state.String())
	}

	handler := NewRouter(Routes{Health: handlers.NewHealthHandler(nil)}, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAdminTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, step := range []func() (atm.Result, error){
		func() (atm.Result, error) { return f.machine.InsertCard(ctx, "1234") },
		func() (atm.Result, error) { return f.machine.SubmitBiometric(ctx, "B1") },
		func() (atm.Result, error) { return f.machine.SubmitPIN(ctx, "4321") },
	} {
		_, err := step()
		require.NoError(t, err)
	}
	res, err := f.machine.RequestTransaction(ctx, withdrawal(40))
	require.NoError(t, err)
	require.Equal(t, atm.StatusCompleted, res.Status)

	rec := f.do(t, http.MethodGet, "/admin/transactions?card=1234", "", service.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode(t, rec)["transactions"].([]interface{})
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]interface{})
	assert.Equal(t, "withdraw", tx["tx_type"])
	assert.Equal(t, "40.00", tx["amount"])
	assert.Equal(t, res.Receipt, tx["tx_id"])

	rec = f.do(t, http.MethodGet, "/admin/transactions?limit=abc", "", service.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
