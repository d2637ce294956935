package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/restaurant-order-platform/internal/auth"
	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/handler"
	"github.com/iliyamo/restaurant-order-platform/internal/model"
	"github.com/iliyamo/restaurant-order-platform/internal/repository"
	"github.com/iliyamo/restaurant-order-platform/internal/utils"
)

// ----- in-memory stores -----

type memUsers struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.User
}

func (m *memUsers) Create(_ context.Context, email, password, role string, restaurantID *uint64, verified bool, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.seq++
	m.byID[m.seq] = model.User{
		ID: m.seq, Email: email, PasswordHash: hash, Role: role,
		RestaurantID: restaurantID, EmailVerified: verified,
	}
	return m.seq, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) MarkEmailVerified(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, password string, cost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

func (m *memUsers) ListStaff(_ context.Context, restaurantID uint64) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.byID {
		if u.RestaurantID != nil && *u.RestaurantID == restaurantID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) DeleteStaff(_ context.Context, restaurantID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || u.RestaurantID == nil || *u.RestaurantID != restaurantID {
		return repository.ErrNotFound
	}
	delete(m.byID, userID)
	return nil
}

type memRestaurants struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.Restaurant
}

func (m *memRestaurants) Create(_ context.Context, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.Name == name {
			return 0, repository.ErrNameExists
		}
	}
	m.seq++
	m.byID[m.seq] = model.Restaurant{ID: m.seq, Name: name}
	return m.seq, nil
}

func (m *memRestaurants) GetByID(_ context.Context, id uint64) (model.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return model.Restaurant{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memRestaurants) List(_ context.Context) ([]model.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Restaurant, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r)
	}
	return out, nil
}

type memTables struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.DiningTable
}

func (m *memTables) Create(_ context.Context, restaurantID uint64, label string, capacity uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.RestaurantID == restaurantID && t.Label == label {
			return 0, repository.ErrLabelExists
		}
	}
	m.seq++
	m.byID[m.seq] = model.DiningTable{
		ID: m.seq, RestaurantID: restaurantID, Label: label, Capacity: capacity, IsActive: true,
	}
	return m.seq, nil
}

func (m *memTables) ListByRestaurant(_ context.Context, restaurantID uint64) ([]model.DiningTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DiningTable
	for _, t := range m.byID {
		if t.RestaurantID == restaurantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTables) Delete(_ context.Context, restaurantID, tableID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[tableID]
	if !ok || t.RestaurantID != restaurantID {
		return repository.ErrNotFound
	}
	delete(m.byID, tableID)
	return nil
}

// ----- harness -----

type app struct {
	e     *echo.Echo
	mr    *miniredis.Miniredis
	users *memUsers
}

func newApp(t *testing.T) *app {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := config.Config{
		JWTSecret:     "test-secret",
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
		VerifyCodeTTL: 5 * time.Minute,
		ResetCodeTTL:  15 * time.Minute,
		StoreTimeout:  2 * time.Second,
	}
	limits := config.RateLimitConfig{
		Prefix:   "rl",
		Global:   config.RateLimit{Limit: 300, Window: time.Minute},
		Login:    config.RateLimit{Limit: 5, Window: 10 * time.Minute},
		Register: config.RateLimit{Limit: 10, Window: time.Hour},
		Reset:    config.RateLimit{Limit: 5, Window: 15 * time.Minute},
		Onboard:  config.RateLimit{Limit: 10, Window: time.Hour},
		Staff:    config.RateLimit{Limit: 20, Window: time.Hour},
	}

	users := &memUsers{byID: map[uint64]model.User{}}
	restaurants := &memRestaurants{byID: map[uint64]model.Restaurant{}}
	tables := &memTables{byID: map[uint64]model.DiningTable{}}

	codec := auth.NewCodec(cfg.JWTSecret, cfg.SessionTTL)
	ledger := auth.NewRevocationLedger(rdb, cfg.SessionTTL)
	codes := auth.NewCodeBroker(rdb, cfg.VerifyCodeTTL, cfg.ResetCodeTTL, nil)
	governor := auth.NewGovernor(rdb, limits.Prefix)

	e := echo.New()
	Register(e, Deps{
		Cfg:         cfg,
		Limits:      limits,
		Governor:    governor,
		Codec:       codec,
		Ledger:      ledger,
		Users:       users,
		Auth:        handler.NewAuthHandler(cfg, users, codec, ledger, codes),
		Restaurants: handler.NewRestaurantHandler(cfg, restaurants, users),
		Staff:       handler.NewStaffHandler(cfg, users),
		Tables:      handler.NewTableHandler(cfg, tables),
	})
	return &app{e: e, mr: mr, users: users}
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Data    map[string]any `json:"data"`
}

func (a *app) do(t *testing.T, method, path, body, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	}
	return rec, env
}

func (a *app) seedUser(t *testing.T, email, password, role string, restaurantID *uint64) uint64 {
	t.Helper()
	id, err := a.users.Create(context.Background(), email, password, role, restaurantID, true, bcrypt.MinCost)
	require.NoError(t, err)
	return id
}

func (a *app) login(t *testing.T, email, password string) string {
	t.Helper()
	rec, env := a.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", env.Message)
	tok, _ := env.Data["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

// ----- tests -----

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec, _ := a.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesForRemainingLifetime(t *testing.T) {
	a := newApp(t)
	a.seedUser(t, "cust@x.com", "longenough", model.RoleCustomer, nil)
	tok := a.login(t, "cust@x.com", "longenough")

	rec, _ := a.do(t, http.MethodGet, "/v1/me", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/auth/logout", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token is still well inside its signed lifetime; only the ledger
	// explains the rejection.
	rec, env := a.do(t, http.MethodGet, "/v1/me", "", tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REVOKED", env.Error)

	// Logging out twice is not an error from the caller's point of view:
	// the gate rejects the revoked token before the handler runs.
	rec, env = a.do(t, http.MethodPost, "/v1/auth/logout", "", tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REVOKED", env.Error)
}

func TestLoginRateLimitCountsFailures(t *testing.T) {
	a := newApp(t)
	a.seedUser(t, "cust@x.com", "right-password", model.RoleCustomer, nil)

	for i := 0; i < 5; i++ {
		rec, env := a.do(t, http.MethodPost, "/v1/auth/login",
			`{"email":"cust@x.com","password":"wrong-password"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		require.Equal(t, "INVALID_CREDENTIALS", env.Error)
	}

	// The sixth attempt is throttled even though the credentials are now
	// correct: the limiter sits in front of the credential check.
	rec, env := a.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"cust@x.com","password":"right-password"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Once the window lapses the same caller logs in normally.
	a.mr.FastForward(11 * time.Minute)
	rec, _ = a.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"cust@x.com","password":"right-password"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantIsolation(t *testing.T) {
	a := newApp(t)
	a.seedUser(t, "dev@platform.com", "longenough", model.RoleDeveloper, nil)
	devTok := a.login(t, "dev@platform.com", "longenough")

	rec, env := a.do(t, http.MethodPost, "/v1/restaurants",
		`{"name":"Bistro A","admin_email":"admin-a@x.com","admin_password":"longenough"}`, devTok)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	rec, _ = a.do(t, http.MethodPost, "/v1/restaurants",
		`{"name":"Bistro B","admin_email":"admin-b@x.com","admin_password":"longenough"}`, devTok)
	require.Equal(t, http.StatusCreated, rec.Code)

	adminA := a.login(t, "admin-a@x.com", "longenough")

	// Admin of restaurant 1 manages their own tenant.
	rec, _ = a.do(t, http.MethodPost, "/v1/restaurants/1/staff",
		`{"email":"cashier@x.com","password":"longenough","role":"CASHIER"}`, adminA)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// The same admin is shut out of restaurant 2.
	rec, env = a.do(t, http.MethodPost, "/v1/restaurants/2/staff",
		`{"email":"mole@x.com","password":"longenough","role":"CASHIER"}`, adminA)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error)
	rec, _ = a.do(t, http.MethodGet, "/v1/restaurants/2/tables", "", adminA)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// DEVELOPER crosses tenants freely.
	rec, _ = a.do(t, http.MethodGet, "/v1/restaurants/2/staff", "", devTok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOnboardingRequiresDeveloper(t *testing.T) {
	a := newApp(t)
	rid := uint64(1)
	a.seedUser(t, "dev@platform.com", "longenough", model.RoleDeveloper, nil)
	a.seedUser(t, "admin@x.com", "longenough", model.RoleAdmin, &rid)
	a.seedUser(t, "cust@x.com", "longenough", model.RoleCustomer, nil)

	body := `{"name":"Bistro","admin_email":"new-admin@x.com","admin_password":"longenough"}`

	rec, env := a.do(t, http.MethodPost, "/v1/restaurants", body, a.login(t, "admin@x.com", "longenough"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error)

	rec, _ = a.do(t, http.MethodPost, "/v1/restaurants", body, a.login(t, "cust@x.com", "longenough"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/restaurants", body, a.login(t, "dev@platform.com", "longenough"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCustomerCannotReachTenantRoutes(t *testing.T) {
	a := newApp(t)
	rid := uint64(1)
	a.seedUser(t, "admin@x.com", "longenough", model.RoleAdmin, &rid)
	a.seedUser(t, "cust@x.com", "longenough", model.RoleCustomer, nil)

	custTok := a.login(t, "cust@x.com", "longenough")
	rec, env := a.do(t, http.MethodGet, "/v1/restaurants/1/staff", "", custTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error)

	rec, _ = a.do(t, http.MethodGet, "/v1/restaurants/1/staff", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTableLifecycle(t *testing.T) {
	a := newApp(t)
	rid := uint64(1)
	a.seedUser(t, "admin@x.com", "longenough", model.RoleAdmin, &rid)
	tok := a.login(t, "admin@x.com", "longenough")

	rec, env := a.do(t, http.MethodPost, "/v1/restaurants/1/tables",
		`{"label":"T1","capacity":4}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = a.do(t, http.MethodPost, "/v1/restaurants/1/tables",
		`{"label":"T1","capacity":2}`, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LABEL_EXISTS", env.Error)

	rec, env = a.do(t, http.MethodGet, "/v1/restaurants/1/tables", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	tables, _ := env.Data["tables"].([]any)
	require.Len(t, tables, 1)

	rec, _ = a.do(t, http.MethodDelete, "/v1/restaurants/1/tables/1", "", tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = a.do(t, http.MethodDelete, "/v1/restaurants/1/tables/1", "", tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error)
}

func TestStaffSelfDeleteGuard(t *testing.T) {
	a := newApp(t)
	rid := uint64(1)
	adminID := a.seedUser(t, "admin@x.com", "longenough", model.RoleAdmin, &rid)
	tok := a.login(t, "admin@x.com", "longenough")

	rec, env := a.do(t, http.MethodDelete,
		"/v1/restaurants/1/staff/"+strconv.FormatUint(adminID, 10), "", tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SELF_DELETE", env.Error)
}
