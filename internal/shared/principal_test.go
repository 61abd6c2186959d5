package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func capturePrincipal(t *testing.T, headers map[string]string) (Principal, bool) {
	t.Helper()
	var got Principal
	var ok bool
	handler := PrincipalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = PrincipalFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got, ok
}

func TestPrincipalMiddlewareActiveRoleSelection(t *testing.T) {
	p, ok := capturePrincipal(t, map[string]string{
		"X-User-Id":     "u-100",
		"X-User-Roles":  "member, coach, admin",
		"X-Active-Role": "coach",
	})
	require.True(t, ok)
	require.Equal(t, "u-100", p.UserID)
	require.Equal(t, []string{"member", "coach", "admin"}, p.Roles)
	require.Equal(t, "coach", p.ActiveRole)
}

func TestPrincipalMiddlewareRejectsUngrantedActiveRole(t *testing.T) {
	p, ok := capturePrincipal(t, map[string]string{
		"X-User-Id":     "u-100",
		"X-User-Roles":  "member",
		"X-Active-Role": "superadmin",
	})
	require.True(t, ok)
	require.Equal(t, "member", p.ActiveRole)
}

func TestPrincipalMiddlewareAnonymous(t *testing.T) {
	_, ok := capturePrincipal(t, nil)
	require.False(t, ok)
}

func TestRequirePrincipalBlocksAnonymousWrites(t *testing.T) {
	called := false
	handler := RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)

	called = false
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: "u-100"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}
