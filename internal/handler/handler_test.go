package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/role-auth/internal/handler"
	"github.com/iliyamo/role-auth/internal/logging"
	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/repository"
	"github.com/iliyamo/role-auth/internal/router"
	"github.com/iliyamo/role-auth/internal/service"
	"github.com/iliyamo/role-auth/internal/utils"
)

type api struct {
	e    *echo.Echo
	deps service.Deps
}

func newAPI(t *testing.T) *api {
	t.Helper()
	hasher, err := utils.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := utils.NewTokenIssuer("handler-secret", "HS256")
	require.NoError(t, err)

	stores := repository.NewMemoryStore().Stores()
	m := metrics.New()
	log := logging.Discard()
	deps := service.Deps{
		Directory: service.NewDirectory(stores.Users, hasher),
		Tokens:    stores.Tokens,
		Roles:     stores.Roles,
		Hasher:    hasher,
		Issuer:    issuer,
		Metrics:   m,
		Log:       log,
	}
	roles := service.NewRoleService(stores.Roles)
	require.NoError(t, roles.EnsureBuiltins(context.Background()))

	e := echo.New()
	router.RegisterRoutes(e, m)
	router.RegisterAPI(e, router.Handlers{
		Accounts: handler.NewAccountHandler(service.NewAccountService(deps)),
		Users:    handler.NewUserHandler(service.NewUserAdminService(deps)),
		Roles:    handler.NewRoleHandler(roles),
	}, router.Guards{
		Resolver: service.NewIdentityResolver(issuer, stores.Tokens, stores.Users, m, log),
		Gate:     service.NewRoleGate(m),
	})
	return &api{e: e, deps: deps}
}

func (a *api) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(b)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type session struct {
	User struct {
		ID    string   `json:"_id"`
		Email string   `json:"email"`
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	} `json:"user"`
	AccessToken struct {
		Token string `json:"token"`
	} `json:"access_token"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func (a *api) register(t *testing.T, email string) session {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/register", "", echo.Map{
		"email": email, "name": "Ada", "surname": "Lovelace", "password": "pa55word",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session](t, rec)
}

// superadmin bootstraps a superadmin and logs them in.
func (a *api) superadmin(t *testing.T) session {
	t.Helper()
	_, err := service.BootstrapSuperadmin(context.Background(), a.deps, service.NewUser{
		Email: "root@example.com", Name: "Root", Surname: "Admin", Password: "rootpass",
	})
	require.NoError(t, err)
	rec := a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "root@example.com", "password": "rootpass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[session](t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndCurrent(t *testing.T) {
	a := newAPI(t)
	sess := a.register(t, "Ada@Example.com ")
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.AccessToken.Token)
	assert.Empty(t, sess.User.Roles)

	rec := a.do(t, http.MethodGet, "/v1/current", sess.AccessToken.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(t, http.MethodPost, "/v1/register", "", echo.Map{
		"email": "ada@example.com", "name": "A", "surname": "B", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/register", "", echo.Map{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	a := newAPI(t)
	a.register(t, "ada@example.com")

	wrong := a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "ada@example.com", "password": "nope"})
	unknown := a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "who@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, errorOf(t, wrong), errorOf(t, unknown))

	rec := a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "ADA@example.com", "password": "pa55word"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/v1/current", "/v1/users", "/v1/roles"} {
		rec := a.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate), path)
	}
	rec := a.do(t, http.MethodGet, "/v1/current", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPolicies(t *testing.T) {
	a := newAPI(t)
	plain := a.register(t, "plain@example.com")
	root := a.superadmin(t)

	rec := a.do(t, http.MethodGet, "/v1/users", plain.AccessToken.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient role", errorOf(t, rec))

	rec = a.do(t, http.MethodPost, "/v1/users/"+plain.User.ID+"/role", root.AccessToken.Token, echo.Map{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Roles are read on every request, so the existing token picks up the grant.
	rec = a.do(t, http.MethodGet, "/v1/users", plain.AccessToken.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[map[string][]json.RawMessage](t, rec)["users"]
	assert.Len(t, users, 2)

	rec = a.do(t, http.MethodGet, "/v1/roles", plain.AccessToken.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Admins cannot assign roles or change the catalogue.
	rec = a.do(t, http.MethodPost, "/v1/users/"+root.User.ID+"/role", plain.AccessToken.Token, echo.Map{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodDelete, "/v1/roles/admin", plain.AccessToken.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/users/"+plain.User.ID+"/role", root.AccessToken.Token, echo.Map{"role": "admin"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBulkRoles(t *testing.T) {
	a := newAPI(t)
	plain := a.register(t, "plain@example.com")
	root := a.superadmin(t)
	path := "/v1/users/" + plain.User.ID + "/roles"

	rec := a.do(t, http.MethodPost, path, root.AccessToken.Token, echo.Map{"roles": []string{"admin", "ghost"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var change struct {
		User struct {
			Roles []string `json:"roles"`
		} `json:"user"`
		MissingRoles []string `json:"missing_roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &change))
	assert.Equal(t, []string{"admin"}, change.User.Roles)
	assert.Equal(t, []string{"ghost"}, change.MissingRoles)

	rec = a.do(t, http.MethodDelete, path, root.AccessToken.Token, echo.Map{"roles": []string{"admin", "superadmin"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &change))
	assert.Empty(t, change.User.Roles)
	assert.Equal(t, []string{"superadmin"}, change.MissingRoles)
}

func TestLogout(t *testing.T) {
	a := newAPI(t)
	first := a.register(t, "ada@example.com")
	rec := a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "ada@example.com", "password": "pa55word"})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[session](t, rec)

	rec = a.do(t, http.MethodDelete, "/v1/logout?scope=current", first.AccessToken.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":1}`, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/current", first.AccessToken.Token, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/current", second.AccessToken.Token, nil).Code)

	rec = a.do(t, http.MethodDelete, "/v1/logout", second.AccessToken.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/current", second.AccessToken.Token, nil).Code)
}

func TestUpdateCurrentRotatesTokens(t *testing.T) {
	a := newAPI(t)
	sess := a.register(t, "ada@example.com")

	rec := a.do(t, http.MethodPut, "/v1/current", sess.AccessToken.Token, echo.Map{"name": "Augusta"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[session](t, rec)
	assert.Equal(t, "Augusta", next.User.Name)
	assert.NotEqual(t, sess.AccessToken.Token, next.AccessToken.Token)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/current", sess.AccessToken.Token, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/current", next.AccessToken.Token, nil).Code)

	rec = a.do(t, http.MethodPut, "/v1/current", next.AccessToken.Token, echo.Map{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePassword(t *testing.T) {
	a := newAPI(t)
	sess := a.register(t, "ada@example.com")

	rec := a.do(t, http.MethodPut, "/v1/current/password", sess.AccessToken.Token,
		echo.Map{"old_password": "wrong", "new_password": "n3wpass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPut, "/v1/current/password", sess.AccessToken.Token,
		echo.Map{"old_password": "pa55word", "new_password": "n3wpass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/login", "", echo.Map{"email": "ada@example.com", "password": "n3wpass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteCurrent(t *testing.T) {
	a := newAPI(t)
	sess := a.register(t, "ada@example.com")

	rec := a.do(t, http.MethodDelete, "/v1/current", sess.AccessToken.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/current", sess.AccessToken.Token, nil).Code)
}

func TestAdminUserManagement(t *testing.T) {
	a := newAPI(t)
	root := a.superadmin(t)
	tok := root.AccessToken.Token

	rec := a.do(t, http.MethodPost, "/v1/users", tok, echo.Map{
		"email": "bob@example.com", "name": "Bob", "surname": "Builder", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[session](t, rec)

	rec = a.do(t, http.MethodGet, "/v1/users?email=bob@example.com", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]json.RawMessage](t, rec)["users"], 1)

	rec = a.do(t, http.MethodGet, "/v1/users?name=nobody", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]json.RawMessage](t, rec)["users"])

	rec = a.do(t, http.MethodPut, "/v1/users/"+created.User.ID, tok, echo.Map{"surname": "Mason"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/users/"+created.User.ID, tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mason")

	rec = a.do(t, http.MethodDelete, "/v1/users/"+created.User.ID, tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/users/"+created.User.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoleCatalogue(t *testing.T) {
	a := newAPI(t)
	tok := a.superadmin(t).AccessToken.Token

	rec := a.do(t, http.MethodPost, "/v1/roles", tok, echo.Map{"name": "editor", "description": "edits"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/v1/roles", tok, echo.Map{"name": "editor"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPut, "/v1/roles/editor", tok, echo.Map{"name": "writer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/roles/editor", tok, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/roles/writer", tok, nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/v1/roles/writer", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/v1/roles/writer", tok, nil).Code)

	rec = a.do(t, http.MethodDelete, "/v1/roles", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())

	// The caller keeps the superadmin name even though the catalogue is empty.
	rec = a.do(t, http.MethodGet, "/v1/roles", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"roles":[]}`, rec.Body.String())
}
