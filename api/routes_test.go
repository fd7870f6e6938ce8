package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/migrations"
	"github.com/joe-ervin05/rolebase/models"
	"github.com/joe-ervin05/rolebase/seeders"
	"github.com/joe-ervin05/rolebase/tools"
)

type envelope struct {
	Data     json.RawMessage `json:"data"`
	HTTPCode int             `json:"httpCode"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
}

func newServer(t *testing.T, ping Pinger, maxBody int64) *httptest.Server {
	t.Helper()
	d := dialect.SQLite{}
	db, err := sql.Open(d.Driver(dialect.ConnConfig{}), d.DSN(dialect.ConnConfig{}))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, migrations.NewMigrator(d, db, nil).Migrate(ctx, migrations.Tables()))
	require.NoError(t, seeders.NewSeeder(d, db, nil).Run(ctx, seeders.Defaults()))

	m, err := models.New(d, db, tools.NewTranslator(d))
	require.NoError(t, err)

	r := chi.NewRouter()
	Register(r, NewHandler(m, ping, maxBody))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func rows(t *testing.T, env envelope) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func requireFailure(t *testing.T, status int, env envelope, code string) {
	t.Helper()
	want := tools.Lookup(code)
	assert.Equal(t, want.HTTPCode, status)
	assert.Equal(t, want.HTTPCode, env.HTTPCode)
	assert.Equal(t, code, env.Code)
	assert.NotEmpty(t, env.Message)
}

func TestHealth(t *testing.T) {
	status, env := do(t, newServer(t, nil, 0), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	down := newServer(t, func(context.Context) error { return errors.New("dial tcp: refused") }, 0)
	status, env = do(t, down, http.MethodGet, "/health", "")
	requireFailure(t, status, env, tools.CodeServiceNotAvailable)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestRolesCRUD(t *testing.T) {
	srv := newServer(t, nil, 0)

	status, env := do(t, srv, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, rows(t, env), 3)

	status, env = do(t, srv, http.MethodPost, "/roles", `{"name":"Guest"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"affectedRows":1,"insertId":4}`, string(env.Data))

	status, env = do(t, srv, http.MethodGet, "/roles/4", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Guest", rows(t, env)[0]["name"])

	status, _ = do(t, srv, http.MethodPut, "/roles/4", `{"name":"Visitor"}`)
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, srv, http.MethodPut, "/roles", `{"id":4,"name":"Viewer"}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"affectedRows":1}`, string(env.Data))

	status, _ = do(t, srv, http.MethodDelete, "/roles/4", "")
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, srv, http.MethodDelete, "/roles/4", "")
	requireFailure(t, status, env, tools.CodeNotFound)

	status, env = do(t, srv, http.MethodGet, "/roles/4", "")
	requireFailure(t, status, env, tools.CodeNotFound)
}

func TestRolesFilters(t *testing.T) {
	srv := newServer(t, nil, 0)

	status, env := do(t, srv, http.MethodGet, "/roles?name=adm", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Admin", rows(t, env)[0]["name"])

	status, env = do(t, srv, http.MethodGet, "/roles?name=admin&patternMatching=false", "")
	requireFailure(t, status, env, tools.CodeNotFound)

	status, env = do(t, srv, http.MethodGet, "/roles?name=Admin&patternMatching=false", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, rows(t, env), 1)

	status, env = do(t, srv, http.MethodGet, "/roles?id=1,3", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, rows(t, env), 2)

	status, env = do(t, srv, http.MethodGet, "/roles?page=2&pageSize=2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, rows(t, env), 1)

	status, env = do(t, srv, http.MethodGet, "/roles?pageSize=ten", "")
	requireFailure(t, status, env, tools.CodeBadField)

	status, env = do(t, srv, http.MethodGet, "/roles?patternMatching=maybe", "")
	requireFailure(t, status, env, tools.CodeBadRequest)
}

func TestBodyErrors(t *testing.T) {
	srv := newServer(t, nil, 64)

	status, env := do(t, srv, http.MethodPost, "/roles", `{"name":`)
	requireFailure(t, status, env, tools.CodeInvalidBody)

	status, env = do(t, srv, http.MethodPost, "/roles", `["Admin"]`)
	requireFailure(t, status, env, tools.CodeInvalidBody)

	status, env = do(t, srv, http.MethodPost, "/roles", "")
	requireFailure(t, status, env, tools.CodeInvalidBody)

	status, env = do(t, srv, http.MethodPost, "/roles", `{"name":"`+strings.Repeat("x", 100)+`"}`)
	requireFailure(t, status, env, tools.CodeRefuseBody)

	status, env = do(t, srv, http.MethodPost, "/roles", `{"name":""}`)
	requireFailure(t, status, env, tools.CodeBadField)

	status, env = do(t, srv, http.MethodPost, "/roles", `{"title":"Admin"}`)
	requireFailure(t, status, env, tools.CodeBadField)

	status, env = do(t, srv, http.MethodPost, "/roles", `{"name":"Admin"}`)
	requireFailure(t, status, env, tools.CodeDupEntry)
}

func TestUsers(t *testing.T) {
	srv := newServer(t, nil, 0)

	status, env := do(t, srv, http.MethodPost, "/users",
		`{"roleId":2,"username":"jdoe","email":"jdoe@example.com","password":"hash","name":"J Doe"}`)
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = do(t, srv, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, status)
	user := rows(t, env)[0]
	assert.Equal(t, "Manager", user["role"])
	assert.Equal(t, "active", user["status"])
	assert.NotContains(t, user, "password")

	status, env = do(t, srv, http.MethodGet, "/users?role=manager", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, rows(t, env), 1)

	status, env = do(t, srv, http.MethodDelete, "/roles/2", "")
	require.NotEqual(t, http.StatusOK, status, "role still referenced by a user")
}
