// Package authtest issues signed tokens accepted by an in-process verifier.
package authtest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

const (
	IssuerURL = "https://issuer.test"
	ClientID  = "moltblock"
)

// Issuer signs RS256 tokens and verifies them against its own public key.
type Issuer struct {
	key      *rsa.PrivateKey
	Verifier *oidc.IDTokenVerifier
}

// New generates a signing key and a verifier trusting it.
func New(tb testing.TB) *Issuer {
	tb.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("generate key: %v", err)
	}

	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return &Issuer{
		key:      key,
		Verifier: oidc.NewVerifier(IssuerURL, keys, &oidc.Config{ClientID: ClientID}),
	}
}

// Token returns a token for subject valid for one hour.
func (i *Issuer) Token(tb testing.TB, subject string) string {
	tb.Helper()
	return i.Sign(tb, jwt.MapClaims{
		"iss": IssuerURL,
		"aud": ClientID,
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
}

// Sign signs arbitrary claims with the issuer key.
func (i *Issuer) Sign(tb testing.TB, claims jwt.MapClaims) string {
	tb.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.key)
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return signed
}
