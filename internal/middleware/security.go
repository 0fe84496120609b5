// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy   –  self-only policy; images may come from
//                                  any https host so durable thumbnails on
//                                  the media CDN render
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set before next.ServeHTTP, so a handler may replace any of
//   them with Header().Set.
// • Preview thumbnails are data: URIs, hence `img-src data:`.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains"
		csp  = "default-src 'self'; img-src 'self' data: https:; object-src 'none'; " +
			"base-uri 'self'; form-action 'self'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", xfo)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Permissions-Policy", perm)
		next.ServeHTTP(w, r)
	})
}
