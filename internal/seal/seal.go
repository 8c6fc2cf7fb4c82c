// Package seal implements the HMAC signing scheme used on federation
// payloads. Heartbeats sign the forge root; consensus broadcasts sign the
// elected leader ID.
package seal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// sigLen is the number of hex characters kept from the full digest (128 bits).
const sigLen = 32

// Sign computes the federation signature for a subject at a given epoch.
// The digest is HMAC-SHA256 over "{subject}|{epoch}" keyed by secret,
// hex-encoded and truncated to 32 characters.
//
// An empty secret is accepted: the result stays deterministic but offers no
// authentication. Callers that need a real trust boundary must supply a
// non-empty DOMINION_SEAL.
func Sign(subject string, epoch int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%d", subject, epoch)
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}
