package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	tok, err := BearerToken(r)
	require.NoError(t, err)
	require.Equal(t, "abc123", tok)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = BearerToken(r2)
	require.ErrorIs(t, err, ErrAccessDenied)

	r3 := httptest.NewRequest(http.MethodGet, "/", nil)
	r3.Header.Set("Authorization", "Basic xyz")
	_, err = BearerToken(r3)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestCheckTenantPrefix(t *testing.T) {
	c := &Claims{CompanyID: "co-1"}
	require.NoError(t, CheckTenantPrefix(c, "tenants/co-1/raw/doc-1/file.pdf"))
	require.ErrorIs(t, CheckTenantPrefix(c, "tenants/co-2/raw/doc-1/file.pdf"), ErrAccessDenied)
}

func TestContextRoundTrip(t *testing.T) {
	c := &Claims{UserID: "u1", TenantID: "t1", CompanyID: "co-1"}
	ctx := WithClaims(t.Context(), c)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, c, got)
}
