package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Domenick1991/hotelops/internal/domain"
)

// Sign computes the hex HMAC-SHA256 of a callback body under the shared
// webhook secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback's signature header against the raw
// body. A mismatch is fatal to the callback; it must never be applied.
func VerifySignature(secret, signature string, body []byte) error {
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature %q: %w", signature, domain.ErrAuthenticityFailed)
	}
	return nil
}
