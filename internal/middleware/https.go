// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ForceHTTPS returns a wrapper that, when enabled, issues a 308 Permanent
// Redirect from plain HTTP to the HTTPS version of the same URL.  Requests
// already on TLS, requests a TLS-terminating proxy marked with
// X-Forwarded-Proto: https, and loopback hosts pass through unchanged.
func ForceHTTPS(enabled bool) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		if !enabled {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") || isLoopback(r.Host) {
				h.ServeHTTP(w, r)
				return
			}
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
		})
	}
}

// isLoopback reports whether host (with optional :port) is a dev address.
func isLoopback(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
