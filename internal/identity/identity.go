// Package identity extracts caller identity from bearer JWTs issued by the
// external identity provider and enforces tenant-isolation access checks.
// The provider itself (login, token issuance) is out of scope; this package
// only verifies and reads claims off tokens presented by callers.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	oidc "github.com/coreos/go-oidc/v3/oidc"
)

// Claims is the subset of JWT claims the platform relies on.
type Claims struct {
	UserID    string `json:"sub"`
	TenantID  string `json:"custom:tenant_id"`
	CompanyID string `json:"custom:company_id"`
}

// ErrAccessDenied marks a cross-tenant or unauthenticated access attempt.
// Callers map this to the ACCESS_DENIED error code at the HTTP boundary.
var ErrAccessDenied = errors.New("identity: access denied")

// Verifier validates bearer tokens against the configured issuer and
// extracts the claims the platform needs.
type Verifier struct {
	idVerifier *oidc.IDTokenVerifier
}

// NewVerifier builds a Verifier against the given OIDC issuer, checking
// tokens were issued for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return &Verifier{idVerifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// ExtractClaims verifies rawToken and returns the caller's claims.
func (v *Verifier) ExtractClaims(ctx context.Context, rawToken string) (*Claims, error) {
	token, err := v.idVerifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, ErrAccessDenied
	}
	var c Claims
	if err := token.Claims(&c); err != nil {
		return nil, ErrAccessDenied
	}
	if c.UserID == "" || c.TenantID == "" || c.CompanyID == "" {
		return nil, ErrAccessDenied
	}
	return &c, nil
}

// BearerToken extracts the raw token from an Authorization: Bearer header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", ErrAccessDenied
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if tok == "" {
		return "", ErrAccessDenied
	}
	return tok, nil
}

type contextKey int

const claimsContextKey contextKey = iota

// WithClaims attaches claims to ctx for downstream handlers.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// FromContext extracts claims attached earlier by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok
}

// CheckTenantPrefix enforces that key falls under the caller's own tenant
// namespace ("tenants/<company_id>/..."), matching the platform's
// cross-tenant access rule.
func CheckTenantPrefix(c *Claims, key string) error {
	prefix := "tenants/" + c.CompanyID + "/"
	if !strings.HasPrefix(key, prefix) {
		return ErrAccessDenied
	}
	return nil
}

// RequireAuth is HTTP middleware that verifies the bearer token on every
// request and attaches the resulting claims to the request context.
func RequireAuth(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := BearerToken(r)
			if err != nil {
				http.Error(w, `{"error":"ACCESS_DENIED"}`, http.StatusUnauthorized)
				return
			}
			claims, err := v.ExtractClaims(r.Context(), tok)
			if err != nil {
				http.Error(w, `{"error":"ACCESS_DENIED"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
