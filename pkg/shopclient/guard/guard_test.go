package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/storefront/pkg/shopclient"
)

func TestGuards(t *testing.T) {
	user := &shopclient.Session{ID: "u-1", Username: "alice", Role: "user"}
	admin := &shopclient.Session{ID: "a-1", Username: "root", Role: "admin"}

	cases := []struct {
		name     string
		guard    Guard
		session  *shopclient.Session
		location string
		want     Decision
	}{
		{"authenticated anonymous", Authenticated, nil, "/purchases",
			Decision{Redirect: "/", State: &State{OpenLoginModal: true, From: "/purchases"}}},
		{"authenticated user", Authenticated, user, "/purchases", Decision{Allow: true}},
		{"authenticated admin", Authenticated, admin, "/purchases", Decision{Redirect: "/admin"}},
		{"admin anonymous", Admin, nil, "/admin",
			Decision{Redirect: "/", State: &State{OpenLoginModal: true, RequireAdmin: true}}},
		{"admin as user", Admin, user, "/admin", Decision{Redirect: "/"}},
		{"admin as admin", Admin, admin, "/admin", Decision{Allow: true}},
		{"empty session id", Admin, &shopclient.Session{Role: "admin"}, "/admin",
			Decision{Redirect: "/", State: &State{OpenLoginModal: true, RequireAdmin: true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.guard.Evaluate(tc.session, tc.location))
		})
	}
}

func TestTable(t *testing.T) {
	table := DefaultTable()
	user := &shopclient.Session{ID: "u-1", Role: "user"}

	assert.True(t, table.Evaluate(nil, "/").Allow)
	assert.True(t, table.Evaluate(nil, "/products/42").Allow)
	assert.True(t, table.Evaluate(nil, "/administrator").Allow)

	d := table.Evaluate(nil, "/checkout?product=42")
	assert.False(t, d.Allow)
	assert.Equal(t, "/checkout?product=42", d.State.From)

	d = table.Evaluate(user, "/admin/users")
	assert.Equal(t, Decision{Redirect: "/"}, d)

	table["/admin/reports/public"] = Guard{Roles: []string{"user", "admin"}}
	assert.True(t, table.Evaluate(user, "/admin/reports/public").Allow)
}
