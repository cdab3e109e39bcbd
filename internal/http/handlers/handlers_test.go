package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/storefront-accounts/internal/auth"
	"github.com/hongminglow/storefront-accounts/internal/middleware"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/service"
	"github.com/hongminglow/storefront-accounts/internal/storage"
	"github.com/hongminglow/storefront-accounts/internal/storage/memory"
)

type envelope struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type testAPI struct {
	t     *testing.T
	store *memory.Store
	mux   *http.ServeMux
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	api := newTestAPIWithStore(t, store)
	api.store = store
	return api
}

// newTestAPIWithStore wires every handler over s. The returned store field is
// nil unless s is the plain memory store.
func newTestAPIWithStore(t *testing.T, s storage.Store) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)
	tokens := auth.NewTokenManager("test-secret", "storefront-accounts-test", time.Hour)
	accounts := service.NewAccounts(s, auth.NewPasswordHasher(bcrypt.MinCost), auth.StrengthPolicy{}, logger)
	requireAuth := middleware.RequireAuth(tokens, logger)

	mux := http.NewServeMux()
	NewHealthHandler(time.Now(), nil).Register(mux)
	NewAuthHandler(accounts, tokens, logger).Register(mux, RouteLimits{})
	NewAccountHandler(accounts, logger).Register(mux, requireAuth)
	NewUserHandler(accounts, logger).Register(mux, requireAuth)
	NewAddressHandler(service.NewAddresses(s, s, logger), logger).Register(mux, requireAuth)
	NewGroupHandler(service.NewGroups(s), logger).Register(mux)
	return &testAPI{t: t, mux: mux}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testAPI) registerAndLogin(username string) string {
	a.t.Helper()
	rec, _ := a.do(http.MethodPost, "/register", "", map[string]any{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "Str0ng!Pass",
		"password_confirm": "Str0ng!Pass",
		"first_name":       "Test",
		"last_name":        "User",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code)

	rec, env := a.do(http.MethodPost, "/login", "", map[string]string{"identifier": username, "password": "Str0ng!Pass"})
	require.Equal(a.t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(a.t, login.Token)
	return login.Token
}

func TestRegisterEndpoint(t *testing.T) {
	api := newTestAPI(t)
	payload := map[string]any{
		"username":         "alice",
		"email":            "Alice@X.com",
		"password":         "Str0ng!Pass",
		"password_confirm": "Str0ng!Pass",
		"first_name":       "Alice",
		"last_name":        "A",
	}

	rec, env := api.do(http.MethodPost, "/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	var user map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "alice@x.com", user["email"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "PasswordHash")

	payload["username"] = "alice2"
	payload["email"] = "ALICE@x.com"
	payload["phone"] = "123-456"
	rec, env = api.do(http.MethodPost, "/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "phone")
}

func TestRegisterRejectsMalformedJSON(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin("alice")

	rec, _ := api.do(http.MethodPost, "/login", "", map[string]string{"identifier": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := api.do(http.MethodPost, "/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "identifier")
}

func TestMeEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin("alice")

	rec, _ := api.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := api.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var self map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &self))
	assert.Equal(t, "Test User", self["full_name"])
	assert.Equal(t, []any{}, self["addresses"])

	rec, _ = api.do(http.MethodPost, "/addresses", token, map[string]any{
		"street_address": "1 Main St",
		"city":           "Springfield",
		"state":          "IL",
		"postal_code":    "62701",
		"country":        "US",
		"is_default":     true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, env = api.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var withAddresses struct {
		Addresses []models.Address `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &withAddresses))
	require.Len(t, withAddresses.Addresses, 1)
	assert.Equal(t, "1 Main St", withAddresses.Addresses[0].StreetAddress)
	assert.True(t, withAddresses.Addresses[0].IsDefault)

	rec, env = api.do(http.MethodPatch, "/me", token, map[string]any{"first_name": "Tess", "bio": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &self))
	assert.Equal(t, "Tess User", self["full_name"])
	assert.Equal(t, "hi", self["profile"].(map[string]any)["bio"])

	rec, env = api.do(http.MethodPatch, "/me", token, map[string]any{"phone": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "phone")
}

func TestChangePasswordEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin("alice")

	rec, _ := api.do(http.MethodPost, "/me/password", token, map[string]string{
		"old_password":         "Wr0ng!Pass",
		"new_password":         "N3w!Password",
		"new_password_confirm": "N3w!Password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := api.do(http.MethodPost, "/me/password", token, map[string]string{
		"old_password":         "Str0ng!Pass",
		"new_password":         "N3w!Password",
		"new_password_confirm": "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "new_password_confirm")

	rec, _ = api.do(http.MethodPost, "/me/password", token, map[string]string{
		"old_password":         "Str0ng!Pass",
		"new_password":         "N3w!Password",
		"new_password_confirm": "N3w!Password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(http.MethodPost, "/login", "", map[string]string{"identifier": "alice", "password": "N3w!Password"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddressEndpoints(t *testing.T) {
	api := newTestAPI(t)
	alice := api.registerAndLogin("alice")
	bob := api.registerAndLogin("bob")

	create := func(token, street string, isDefault bool) models.Address {
		rec, env := api.do(http.MethodPost, "/addresses", token, map[string]any{
			"type":           "billing",
			"street_address": street,
			"city":           "Springfield",
			"state":          "IL",
			"postal_code":    "62701",
			"country":        "US",
			"is_default":     isDefault,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var addr models.Address
		require.NoError(t, json.Unmarshal(env.Data, &addr))
		return addr
	}

	first := create(alice, "1 Main St", true)
	second := create(alice, "2 Main St", false)
	assert.Equal(t, models.AddressBilling, first.Type)

	rec, env := api.do(http.MethodPost, "/addresses/"+second.ID.String()+"/default", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodGet, "/addresses", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Address
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)

	// Bob cannot see or touch Alice's addresses, and cannot tell they exist.
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/addresses/" + first.ID.String()},
		{http.MethodPatch, "/addresses/" + first.ID.String()},
		{http.MethodDelete, "/addresses/" + first.ID.String()},
		{http.MethodPost, "/addresses/" + first.ID.String() + "/default"},
		{http.MethodGet, "/addresses/not-a-uuid"},
	} {
		rec, _ := api.do(tc.method, tc.path, bob, map[string]any{"city": "Elsewhere"})
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}
	rec, env = api.do(http.MethodGet, "/addresses", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))

	rec, _ = api.do(http.MethodDelete, "/addresses/"+first.ID.String(), alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = api.do(http.MethodPost, "/addresses", alice, map[string]any{"street_address": "3 Main St"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "city")
}

func TestCustomerGroupsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.store.CreateGroup(context.Background(), models.CustomerGroup{Name: "VIP", DiscountPercentage: 15, IsActive: true})
	require.NoError(t, err)

	rec, env := api.do(http.MethodGet, "/customer-groups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []models.CustomerGroup
	require.NoError(t, json.Unmarshal(env.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "VIP", groups[0].Name)
}

func TestUsersEndpoint(t *testing.T) {
	api := newTestAPI(t)
	customer := api.registerAndLogin("alice")
	staff := api.registerAndLogin("bob")

	rec, _ := api.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := api.do(http.MethodGet, "/users", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission denied", env.Message)

	bob, err := api.store.FindByUsernameOrEmail(context.Background(), "bob")
	require.NoError(t, err)
	bob.Role = models.RoleStaff
	_, err = api.store.UpdateUser(context.Background(), bob)
	require.NoError(t, err)

	rec, env = api.do(http.MethodGet, "/users", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0]["username"])
	assert.Equal(t, "staff", users[1]["role"])
	assert.NotContains(t, users[0], "password_hash")
}

// createFailStore fails CreateUser with err and serves everything else from memory.
type createFailStore struct {
	*memory.Store
	err error
}

func (s createFailStore) CreateUser(context.Context, models.User, models.Profile) (models.User, error) {
	return models.User{}, s.err
}

func TestRegisterStoreFailureStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		hiddenBody string
	}{
		{"unique violation", &storage.UniqueViolation{Field: "email"}, http.StatusConflict, "email", ""},
		{"connection fault", errors.New("conn reset"), http.StatusInternalServerError, "internal error", "conn reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPIWithStore(t, createFailStore{Store: memory.New(), err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(
				`{"username":"alice","email":"alice@x.com","password":"Str0ng!Pass","password_confirm":"Str0ng!Pass","first_name":"A","last_name":"B"}`))
			rec := httptest.NewRecorder()
			api.mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if tt.hiddenBody != "" {
				assert.NotContains(t, rec.Body.String(), tt.hiddenBody)
			}
		})
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	api := newTestAPI(t)
	long := "Str0ng!Pass" + strings.Repeat("x", 70)
	rec, env := api.do(http.MethodPost, "/register", "", map[string]any{
		"username":         "alice",
		"email":            "alice@x.com",
		"password":         long,
		"password_confirm": long,
		"first_name":       "A",
		"last_name":        "B",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors["password"], "password must be at most 72 bytes")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)
	rec, _ := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	mux := http.NewServeMux()
	NewHealthHandler(time.Now(), failingPinger{}).Register(mux)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
