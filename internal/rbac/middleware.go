package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/platform/httpx"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Directory resolves a user id to a principal. Inactive or unknown users
// resolve to an error.
type Directory interface {
	Lookup(ctx context.Context, userID uuid.UUID) (shared.Principal, error)
}

// Middleware wires authorization helpers for HTTP handlers. Identity
// arrives from a trusted reverse proxy header; the service itself never
// handles credentials on request paths.
type Middleware struct {
	Directory Directory
	Logger    *slog.Logger
	Header    string
}

// Principal resolves the trusted identity header and stores the principal
// in the request context. Requests without a valid header are rejected.
func (m Middleware) Principal(next http.Handler) http.Handler {
	header := m.Header
	if header == "" {
		header = "X-User-ID"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(header))
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity header")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "malformed identity header")
			return
		}
		principal, err := m.Directory.Lookup(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("principal lookup", slog.String("user_id", raw), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown or inactive user")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// Require ensures the principal carries all named capabilities.
func (m Middleware) Require(caps ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
				return
			}
			for _, c := range caps {
				if !principal.HasCapability(c) {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing capability "+c)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
