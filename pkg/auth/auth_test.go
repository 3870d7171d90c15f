package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalPredicates(t *testing.T) {
	admin := Principal{Role: RoleAdmin, ID: 1}
	org := Principal{Role: RoleOrganization, ID: 7}
	user := Principal{Role: RoleUser, ID: 42}
	client := Principal{Role: RoleClientCompany, ID: 3}

	assert.True(t, admin.IsStaff())
	assert.True(t, org.IsStaff())
	assert.False(t, user.IsStaff())
	assert.False(t, client.IsStaff())

	assert.True(t, admin.OwnsOrganization(99))
	assert.True(t, org.OwnsOrganization(7))
	assert.False(t, org.OwnsOrganization(8))
	assert.False(t, user.OwnsOrganization(42))

	assert.True(t, admin.IsSelfOrAdmin(42))
	assert.True(t, user.IsSelfOrAdmin(42))
	assert.False(t, user.IsSelfOrAdmin(43))
	assert.False(t, org.IsSelfOrAdmin(7), "organization IDs do not alias user IDs")
}

func middlewareProbe(t *testing.T) (http.Handler, *Principal, *bool) {
	t.Helper()
	var captured Principal
	var present bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, present = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	resolver := StaticResolver{"good-token": {Role: RoleAdmin, ID: 1}}
	return Middleware(resolver, zerolog.Nop())(next), &captured, &present
}

func TestMiddlewareAnonymousPassesThrough(t *testing.T) {
	handler, _, present := middlewareProbe(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, *present)
}

func TestMiddlewareResolvesToken(t *testing.T) {
	handler, captured, present := middlewareProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *present)
	assert.Equal(t, RoleAdmin, captured.Role)
}

func TestMiddlewareRejectsBadCredentials(t *testing.T) {
	handler, _, _ := middlewareProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
