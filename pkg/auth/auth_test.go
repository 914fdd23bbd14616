package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JaimeStill/moltblock/pkg/auth"
	"github.com/JaimeStill/moltblock/pkg/auth/authtest"
)

func guarded(v auth.TokenVerifier, allowAnonymous bool) (http.Handler, *string) {
	var subject string
	h := auth.Require(v, allowAnonymous, slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = auth.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &subject
}

func TestRequire(t *testing.T) {
	issuer := authtest.New(t)
	other := authtest.New(t)

	expired := issuer.Sign(t, jwt.MapClaims{
		"iss": authtest.IssuerURL,
		"aud": authtest.ClientID,
		"sub": "operator",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongAudience := issuer.Sign(t, jwt.MapClaims{
		"iss": authtest.IssuerURL,
		"aud": "someone-else",
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name        string
		verifier    auth.TokenVerifier
		anonymous   bool
		method      string
		header      string
		wantStatus  int
		wantSubject string
	}{
		{"read without token", issuer.Verifier, false, "GET", "", http.StatusNoContent, ""},
		{"write without token", issuer.Verifier, false, "POST", "", http.StatusUnauthorized, ""},
		{"write with token", issuer.Verifier, false, "POST", "Bearer " + issuer.Token(t, "operator"), http.StatusNoContent, "operator"},
		{"lowercase scheme", issuer.Verifier, false, "DELETE", "bearer " + issuer.Token(t, "operator"), http.StatusNoContent, "operator"},
		{"basic scheme", issuer.Verifier, false, "POST", "Basic b3A6cHc=", http.StatusUnauthorized, ""},
		{"foreign key", issuer.Verifier, false, "POST", "Bearer " + other.Token(t, "operator"), http.StatusUnauthorized, ""},
		{"expired", issuer.Verifier, false, "PUT", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong audience", issuer.Verifier, false, "POST", "Bearer " + wrongAudience, http.StatusUnauthorized, ""},
		{"unconfigured write", nil, false, "POST", "", http.StatusUnauthorized, ""},
		{"unconfigured read", nil, false, "GET", "", http.StatusNoContent, ""},
		{"anonymous allowed", nil, true, "POST", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, subject := guarded(tt.verifier, tt.anonymous)

			req := httptest.NewRequest(tt.method, "/governance/resume", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if *subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", *subject, tt.wantSubject)
			}
		})
	}
}

func TestSubjectEmptyWithoutToken(t *testing.T) {
	if got := auth.Subject(context.Background()); got != "" {
		t.Errorf("Subject = %q", got)
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     auth.Config
		wantErr bool
	}{
		{"disabled", auth.Config{}, false},
		{"enabled", auth.Config{Enabled: true, Issuer: "https://login.example.com", ClientID: "moltblock"}, false},
		{"missing issuer", auth.Config{Enabled: true, ClientID: "moltblock"}, true},
		{"relative issuer", auth.Config{Enabled: true, Issuer: "/issuer", ClientID: "moltblock"}, true},
		{"missing client", auth.Config{Enabled: true, Issuer: "https://login.example.com"}, true},
		{"bad jwks", auth.Config{Enabled: true, Issuer: "https://login.example.com", ClientID: "m", JWKSURL: "keys"}, true},
		{"anonymous with auth", auth.Config{Enabled: true, Issuer: "https://login.example.com", ClientID: "m", AllowAnonymous: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("TEST_AUTH_ENABLED", "true")
	t.Setenv("TEST_AUTH_ISSUER", "https://login.example.com")
	t.Setenv("TEST_AUTH_CLIENT_ID", "moltblock")

	cfg := auth.Config{}
	err := cfg.Finalize(&auth.Env{
		Enabled:  "TEST_AUTH_ENABLED",
		Issuer:   "TEST_AUTH_ISSUER",
		ClientID: "TEST_AUTH_CLIENT_ID",
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !cfg.Enabled || cfg.ClientID != "moltblock" {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("TEST_AUTH_ENABLED", "sometimes")
	if err := (&auth.Config{}).Finalize(&auth.Env{Enabled: "TEST_AUTH_ENABLED"}); err == nil {
		t.Error("expected error for non-boolean override")
	}
}

func TestMergeNeverDisables(t *testing.T) {
	cfg := auth.Config{Enabled: true, Issuer: "https://a.example.com", ClientID: "a"}
	cfg.Merge(&auth.Config{ClientID: "b"})

	if !cfg.Enabled || cfg.ClientID != "b" || cfg.Issuer != "https://a.example.com" {
		t.Errorf("merged = %+v", cfg)
	}
}
