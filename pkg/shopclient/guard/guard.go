// Package guard decides whether a storefront page may be shown for the
// current session, and where to send the visitor when it may not.
package guard

import (
	"slices"
	"strings"

	"github.com/Skotchmaster/storefront/pkg/shopclient"
)

// State travels with a redirect so the landing page can react to it.
type State struct {
	OpenLoginModal bool   `json:"openLoginModal,omitempty"`
	From           string `json:"from,omitempty"`
	RequireAdmin   bool   `json:"requireAdmin,omitempty"`
}

type Decision struct {
	Allow    bool
	Redirect string
	State    *State
}

// Guard admits sessions whose role is in Roles. Other signed-in roles go to
// RoleRedirects[role], or "/" when unmapped. Anonymous visitors go to "/"
// with the login modal requested.
type Guard struct {
	Roles         []string
	RoleRedirects map[string]string
	RequireAdmin  bool
	RememberFrom  bool
}

var (
	Authenticated = Guard{
		Roles:         []string{"user"},
		RoleRedirects: map[string]string{"admin": "/admin"},
		RememberFrom:  true,
	}
	Admin = Guard{
		Roles:        []string{"admin"},
		RequireAdmin: true,
	}
)

func (g Guard) Evaluate(session *shopclient.Session, location string) Decision {
	if session == nil || session.ID == "" {
		st := &State{OpenLoginModal: true, RequireAdmin: g.RequireAdmin}
		if g.RememberFrom {
			st.From = location
		}
		return Decision{Redirect: "/", State: st}
	}
	if slices.Contains(g.Roles, session.Role) {
		return Decision{Allow: true}
	}
	if to, ok := g.RoleRedirects[session.Role]; ok {
		return Decision{Redirect: to}
	}
	return Decision{Redirect: "/"}
}

// Table maps path prefixes to guards. The longest matching prefix wins and
// paths with no match are public.
type Table map[string]Guard

func DefaultTable() Table {
	return Table{
		"/admin":     Admin,
		"/purchases": Authenticated,
		"/profile":   Authenticated,
		"/checkout":  Authenticated,
	}
}

func (t Table) Evaluate(session *shopclient.Session, location string) Decision {
	path, _, _ := strings.Cut(location, "?")

	best := ""
	for prefix := range t {
		if matches(path, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Decision{Allow: true}
	}
	return t[best].Evaluate(session, location)
}

// matches treats prefix as a path segment boundary: /admin covers
// /admin/users but not /administrator.
func matches(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
