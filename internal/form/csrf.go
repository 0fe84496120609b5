// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Every rendered admin form embeds a hidden `csrf_token` input.  The
//   server verifies it on each POST so a request can only act on a form
//   instance the server itself rendered.  The token is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro+instance) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – binds the token to one form instance ID.
//
//   Verification checks the signature and that the timestamp is within
//   MaxAge.  No server-side state is required, so the check works across
//   replicas sharing a key.
//
// Workflow
//   •  NewCSRF(key)          → signer; an empty key yields a random one.
//   •  Issue(instanceID)     → token for the renderer.
//   •  Verify(tok, instance) → constant-time verify; false on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"

	"go.uber.org/zap"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size // nonce + ts + sig
	maxAge     = 2 * time.Hour                // token valid window
)

// CSRF issues and verifies instance-bound tokens.
type CSRF struct {
	key []byte
	now func() time.Time
}

// NewCSRF returns a signer.  key should be a 32-byte base64url string;
// anything shorter is replaced by a random key that resets on restart.
func NewCSRF(key string) *CSRF {
	c := &CSRF{now: time.Now}
	if b, err := base64.RawURLEncoding.DecodeString(key); err == nil && len(b) >= 32 {
		c.key = b
		return c
	}
	c.key = make([]byte, 32)
	_, _ = rand.Read(c.key)
	zap.S().Warnw("csrf key not configured, using an ephemeral random key")
	return c
}

// Issue creates a new token for instanceID.  Call once per form render.
func (c *CSRF) Issue(instanceID string) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(nonce, ts, instanceID)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify returns true if tok passes HMAC and age checks for instanceID.
func (c *CSRF) Verify(tok, instanceID string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:nonceBytes]
	tsBytes := raw[nonceBytes : nonceBytes+8]
	sig := raw[nonceBytes+8:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := c.now()
	if now.Sub(issued) > maxAge || issued.Sub(now) > time.Minute {
		// Older than maxAge, or from the future beyond clock skew.
		return false
	}

	return hmac.Equal(sig, c.sign(nonce, tsBytes, instanceID))
}

func (c *CSRF) sign(nonce, ts []byte, instanceID string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(nonce)
	mac.Write(ts)
	mac.Write([]byte(instanceID))
	return mac.Sum(nil)
}
