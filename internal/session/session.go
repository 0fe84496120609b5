// internal/session/session.go
//
// Flash cookie for toasts that survive one redirect.
//
// Context
//   Every form POST ends in a 303 redirect.  The toast produced by the POST
//   is written to a short-lived cookie and read, then cleared, by the GET
//   that renders the next page.
//
// Notes
//   • The cookie holds base64url JSON.  Templates escape the text, so the
//     value needs no signature.
//
//------------------------------------------------------------------------------

package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/yanizio/catalog-admin/internal/message"
)

const (
	flashCookie = "catalog_flash"
	flashMaxAge = 60 // seconds; one redirect hop
)

// SetToast stores t for the next request.
func SetToast(w http.ResponseWriter, r *http.Request, t message.Toast) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopToast returns the pending toast, if any, and clears the cookie.
func PopToast(w http.ResponseWriter, r *http.Request) (message.Toast, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return message.Toast{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return message.Toast{}, false
	}
	var t message.Toast
	if err := json.Unmarshal(raw, &t); err != nil || t.Empty() {
		return message.Toast{}, false
	}
	return t, true
}
