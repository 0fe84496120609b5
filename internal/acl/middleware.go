// internal/acl/middleware.go
//
// Chi middleware that enforces per-entity permissions.

package acl

import (
	"context"
	"net/http"

	"github.com/yanizio/catalog-admin/internal/auth"
	"github.com/yanizio/catalog-admin/internal/logger"
)

// Checker is the part of Store the middleware needs.
type Checker interface {
	UserRoles(ctx context.Context, userID int64) ([]string, error)
	Allowed(ctx context.Context, roles []string, component, action string) (bool, error)
}

// Target names the component and action a request wants.  An empty
// component means the request has no protected target; the handler
// decides what to do with it.
type Target func(r *http.Request) (component, action string)

// RequirePermission verifies that the principal may perform the action
// target names.  Roles come from the token first; database roles for the
// same user are added.  A nil checker admits everyone the admin gate
// already admitted.
func RequirePermission(c Checker, target Target) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())
			p, ok := auth.FromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			component, action := target(r)
			if component == "" {
				next.ServeHTTP(w, r)
				return
			}

			roles := append([]string(nil), p.Roles...)
			if p.UserID != 0 {
				dbRoles, err := c.UserRoles(r.Context(), p.UserID)
				if err != nil {
					log.Errorw("acl user roles", "err", err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				roles = append(roles, dbRoles...)
			}

			allowed, err := c.Allowed(r.Context(), roles, component, action)
			if err != nil {
				log.Errorw("acl allowed", "err", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				log.Infow("acl denied", "user_id", p.UserID, "component", component, "action", action)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
