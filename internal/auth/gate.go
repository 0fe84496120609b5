// internal/auth/gate.go
//
// Admin gate middleware.
//
// Context
// -------
// Every /admin route sits behind Gate.  A request passes only when it
// carries a valid token whose roles include the configured admin role.
// Anything else, including an expired token or a signed-in customer, is
// redirected to the login page with the original path in ?next= so the
// login flow can send the admin back.
//
// Workflow
// --------
//   1. Read the bearer header, then the access-token cookie.
//   2. Verify the HS256 signature and expiry.
//   3. Require the admin role.
//   4. Attach the Principal and forward.
//
// Notes
// -----
// • Non-GET requests are redirected with 303 so browsers switch to GET.
package auth

import (
	"net/http"
	"net/url"

	"github.com/yanizio/catalog-admin/internal/logger"
)

// Gate returns middleware admitting only authenticated holders of role.
func Gate(v *Verifier, role, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := v.FromRequest(r)
			if err != nil {
				logger.FromContext(r.Context()).Debugw("admin gate: no valid token", "err", err)
				redirectToLogin(w, r, loginURL)
				return
			}
			if !p.HasRole(role) {
				logger.FromContext(r.Context()).Infow("admin gate: role missing",
					"user_id", p.UserID, "required", role)
				redirectToLogin(w, r, loginURL)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginURL string) {
	code := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	target := loginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, code)
}
