package cookies

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Create(t *testing.T) {
	t.Parallel()

	ck := Policy{Secure: true}.Create(AccessToken, "tok", 2*time.Minute)

	assert.Equal(t, AccessToken, ck.Name)
	assert.Equal(t, "tok", ck.Value)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, 120, ck.MaxAge)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
}

func TestPolicy_Delete(t *testing.T) {
	t.Parallel()

	ck := Policy{}.Delete(UserID)
	assert.Equal(t, -1, ck.MaxAge)
	assert.Empty(t, ck.Value)
	assert.False(t, ck.Secure)
	assert.True(t, ck.HttpOnly)
}

func TestEchoJar(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: UserID, Value: "u-1"})
	req.AddCookie(&http.Cookie{Name: AccessToken, Value: ""})
	rec := httptest.NewRecorder()
	jar := FromEcho(e.NewContext(req, rec))

	v, ok := jar.Get(UserID)
	require.True(t, ok)
	assert.Equal(t, "u-1", v)

	_, ok = jar.Get(AccessToken)
	assert.False(t, ok, "empty cookie counts as absent")

	jar.Set(Policy{}.Delete(UserID))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "userId=;")
}

func TestMapJar(t *testing.T) {
	t.Parallel()

	jar := NewMapJar(map[string]string{AccessToken: "a"})
	jar.Set(Policy{}.Create(UserID, "u", time.Hour))
	jar.Set(Policy{}.Delete(AccessToken))

	_, ok := jar.Get(AccessToken)
	assert.False(t, ok)
	v, _ := jar.Get(UserID)
	assert.Equal(t, "u", v)
	assert.Len(t, jar.Written, 2)
}
