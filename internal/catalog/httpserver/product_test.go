package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/auth/authtest"
	authmodels "github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/catalog/models"
	"github.com/Skotchmaster/storefront/internal/catalog/repo"
	"github.com/Skotchmaster/storefront/internal/catalog/service"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/db/dbtest"
	"github.com/Skotchmaster/storefront/pkg/events"
)

type catalogEnv struct {
	e     *echo.Echo
	auth  *authtest.Env
	admin *authmodels.User
	buyer *authmodels.User
}

func newCatalogEnv(t *testing.T) *catalogEnv {
	t.Helper()

	db := dbtest.Open(t, &models.Product{})
	h := &CatalogHTTP{Svc: &service.CatalogService{Repo: &repo.GormRepo{DB: db}, Events: events.Nop{}}}

	env := &catalogEnv{e: echo.New(), auth: authtest.New(t)}
	env.e.HTTPErrorHandler = apperr.HTTPErrorHandler
	h.Mount(env.e.Group("/api/products"), env.auth.Gate)

	env.admin = env.auth.User(t, "root", authmodels.RoleAdmin)
	env.buyer = env.auth.User(t, "buyer", authmodels.RoleUser)
	return env
}

func (env *catalogEnv) do(t *testing.T, method, path, body string, as *authmodels.User) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != nil {
		env.auth.Authorize(t, req, as)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const lampJSON = `{"name":"Lamp","description":"Desk lamp","price":19.99,"imageURL":"https://img.example.com/lamp.png","stockQuantity":3}`

func TestProducts_AdminWrites(t *testing.T) {
	t.Parallel()

	env := newCatalogEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/products", lampJSON, env.admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	rec, body = env.do(t, http.MethodPut, "/api/products/"+id, `{"stockQuantity":9}`, env.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 9, body["stockQuantity"])
	assert.Equal(t, "Lamp", body["name"])

	rec, body = env.do(t, http.MethodGet, "/api/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body["status"])

	rec, _ = env.do(t, http.MethodDelete, "/api/products/"+id, "", env.admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", body["message"])
}

func TestProducts_WritesNeedAdmin(t *testing.T) {
	t.Parallel()

	env := newCatalogEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/products", lampJSON, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeTokenMissing, body["code"])

	rec, body = env.do(t, http.MethodPost, "/api/products", lampJSON, env.buyer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied: insufficient permissions", body["message"])
}

func TestProducts_Validation(t *testing.T) {
	t.Parallel()

	env := newCatalogEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/products", `{"name":"Lamp","price":-1,"imageURL":"x"}`, env.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price cannot be negative", body["message"])

	rec, _ = env.do(t, http.MethodGet, "/api/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/products/6f1c2f0e-0000-4000-8000-000000000000", "", env.admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_ListIsPaged(t *testing.T) {
	t.Parallel()

	env := newCatalogEnv(t)
	for i := 0; i < 3; i++ {
		rec, _ := env.do(t, http.MethodPost, "/api/products", lampJSON, env.admin)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := env.do(t, http.MethodGet, "/api/products?page=2&size=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)

	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, meta["total"])
	assert.EqualValues(t, 2, meta["total_pages"])
	assert.Equal(t, true, meta["has_prev"])
	assert.Equal(t, false, meta["has_next"])
}
