package shared

import (
	"context"
	"net/http"
	"strings"

	"github.com/courtledger/courtledger/internal/platform/httpx"
)

// Role names granted by the identity provider upstream of this service.
const (
	RoleMember      = "member"
	RoleHost        = "host"
	RoleCoach       = "coach"
	RoleAdmin       = "admin"
	RoleSuperAdmin  = "superadmin"
	RoleSocialAdmin = "social_admin"
)

// Principal is the request-scoped identity. The granted role set is immutable
// for the lifetime of the request; the active role is a per-request selector
// and is never persisted.
type Principal struct {
	UserID     string
	Roles      []string
	ActiveRole string
}

// HasRole reports whether the principal was granted the role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// RequirePrincipal rejects mutating requests that carry no identity. Reads
// stay open; role resolution happens upstream at the gateway.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", ErrMissingPrincipal.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalMiddleware resolves the request identity from the trusted gateway
// headers. Authentication itself happens upstream; this layer only carries the
// resolved identity and the requested active role into handler context.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		p := Principal{UserID: userID}
		for _, role := range strings.Split(r.Header.Get("X-User-Roles"), ",") {
			if role = strings.TrimSpace(role); role != "" {
				p.Roles = append(p.Roles, role)
			}
		}
		active := strings.TrimSpace(r.Header.Get("X-Active-Role"))
		switch {
		case active != "" && p.HasRole(active):
			p.ActiveRole = active
		case len(p.Roles) > 0:
			p.ActiveRole = p.Roles[0]
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
