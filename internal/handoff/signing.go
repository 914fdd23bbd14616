package handoff

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
	"unicode"
)

// Signing key environment variables. The per-entity variable is suffixed with
// the upper-cased entity id, non-alphanumerics replaced by underscores.
const (
	EnvSigningKey       = "MOLTBLOCK_SIGNING_KEY"
	EnvSigningKeyPrefix = "MOLTBLOCK_SIGNING_KEY_"
)

const (
	defaultMaster  = "moltblock-default-signing-key"
	keyDerivation  = "moltblock-entity-key:"
	payloadHashLen = 32
)

// DeriveKey returns the signing key for entityID: HMAC-SHA256 of the
// derivation label and entity id under the entity's master secret. Entities
// sharing a master secret still get distinct keys.
func DeriveKey(entityID string) []byte {
	mac := hmac.New(sha256.New, []byte(masterSecret(entityID)))
	mac.Write([]byte(keyDerivation + entityID))
	return mac.Sum(nil)
}

func masterSecret(entityID string) string {
	if v := os.Getenv(EnvSigningKeyPrefix + envSuffix(entityID)); v != "" {
		return v
	}
	if v := os.Getenv(EnvSigningKey); v != "" {
		return v
	}
	return defaultMaster
}

func envSuffix(entityID string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, entityID)
}

// Sign returns the base64 HMAC-SHA256 signature of payload by entityID.
func Sign(entityID, payload string) string {
	mac := hmac.New(sha256.New, DeriveKey(entityID))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is entityID's signature of
// payload. The comparison is constant time.
func VerifySignature(entityID, payload, signature string) bool {
	expected := Sign(entityID, payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// PayloadHash returns the first 32 hex characters of the SHA-256 of payload.
func PayloadHash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:payloadHashLen]
}
