// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits directly after the request logger.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Picks the locale: a ?lang= query override wins, then the first
     Accept-Language tag.
  3. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`, and performs a GeoLite2 lookup.
  4. Stores a `*RequestInfo` in the request context so handlers and
     templates can read it without reparsing.

Notes
-----
  • Locale is a raw tag.  The i18n catalog resolves it to a supported
    locale, so an unknown ?lang= value degrades to the default.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/catalog-admin/internal/logger"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := parseUA(r.UserAgent(), r.Header.Get("Accept-Language"))
		info := &RequestInfo{
			UA:        ua,
			Geo:       lookupGeo(clientIP(r)),
			Locale:    ua.PrimaryLang,
			Timestamp: time.Now().UTC(),
		}
		if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
			info.Locale = strings.ToLower(lang)
		}

		logger.FromContext(r.Context()).Debugw("request info",
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
			"locale", info.Locale,
		)

		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
