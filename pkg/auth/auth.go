// Package auth guards state-changing HTTP requests with OpenID Connect bearer
// tokens. Reads stay open; every other method needs a verified token unless
// anonymous writes are explicitly allowed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/moltblock/pkg/handlers"
)

var (
	ErrMissingToken  = errors.New("bearer token required")
	ErrInvalidToken  = errors.New("invalid bearer token")
	ErrNotConfigured = errors.New("write requests require authentication, which is not configured")
)

// TokenVerifier verifies a raw bearer token. *oidc.IDTokenVerifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*oidc.IDToken, error)
}

// NewVerifier builds a verifier for cfg. With a JWKS URL the signing keys are
// fetched lazily from it; otherwise the issuer's discovery document is read
// now.
func NewVerifier(ctx context.Context, cfg *Config) (*oidc.IDTokenVerifier, error) {
	oc := &oidc.Config{ClientID: cfg.ClientID}

	if cfg.JWKSURL != "" {
		keys := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
		return oidc.NewVerifier(cfg.Issuer, keys, oc), nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return provider.Verifier(oc), nil
}

type subjectKey struct{}

// Subject returns the verified token subject stored by Require, or "".
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// Require returns middleware that authenticates every request whose method
// is not GET, HEAD or OPTIONS. With a nil verifier writes pass only when
// allowAnonymous is set.
func Require(v TokenVerifier, allowAnonymous bool, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("system", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if v == nil {
				if allowAnonymous {
					next.ServeHTTP(w, r)
					return
				}
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrNotConfigured)
				return
			}

			raw, ok := bearer(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			token, err := v.Verify(r.Context(), raw)
			if err != nil {
				logger.Warn("token rejected", "method", r.Method, "uri", r.URL.RequestURI(), "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			logger.Info("write authorized", "method", r.Method, "uri", r.URL.RequestURI(), "subject", token.Subject)
			ctx := context.WithValue(r.Context(), subjectKey{}, token.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
