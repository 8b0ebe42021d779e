// Package cookies builds the session cookies and adapts echo's cookie access
// to a small Jar port so the auth gate can run without an HTTP framework.
package cookies

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	AccessToken = "accessToken"
	UserID      = "userId"
)

type Jar interface {
	Get(name string) (string, bool)
	Set(c *http.Cookie)
}

// Policy holds the attributes shared by every session cookie.
type Policy struct {
	Secure bool
	Path   string
}

func (p Policy) path() string {
	if p.Path == "" {
		return "/"
	}
	return p.Path
}

func (p Policy) Create(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     p.path(),
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (p Policy) Delete(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     p.path(),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

type echoJar struct{ c echo.Context }

func FromEcho(c echo.Context) Jar { return echoJar{c: c} }

func (j echoJar) Get(name string) (string, bool) {
	ck, err := j.c.Cookie(name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (j echoJar) Set(c *http.Cookie) { j.c.SetCookie(c) }

// MapJar is an in-memory Jar. Set records every written cookie in order.
type MapJar struct {
	Values  map[string]string
	Written []*http.Cookie
}

func NewMapJar(values map[string]string) *MapJar {
	if values == nil {
		values = map[string]string{}
	}
	return &MapJar{Values: values}
}

func (j *MapJar) Get(name string) (string, bool) {
	v, ok := j.Values[name]
	return v, ok && v != ""
}

func (j *MapJar) Set(c *http.Cookie) {
	j.Written = append(j.Written, c)
	if c.MaxAge < 0 {
		delete(j.Values, c.Name)
		return
	}
	j.Values[c.Name] = c.Value
}
