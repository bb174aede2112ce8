package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Token abc")
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Bearer abc")
	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "ms-theatre", time.Hour)
	token, err := m.Issue(&models.User{ID: "u-1", Email: "a@b.c", IsStaff: true})
	require.NoError(t, err)

	id, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{UserID: "u-1", Email: "a@b.c", IsStaff: true}, id)
}

func TestJWTManagerRejects(t *testing.T) {
	m := NewJWTManager("secret", "ms-theatre", time.Hour)
	token, err := m.Issue(&models.User{ID: "u-1"})
	require.NoError(t, err)

	other := NewJWTManager("other", "ms-theatre", time.Hour)
	_, err = other.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	wrongIssuer := NewJWTManager("secret", "someone-else", time.Hour)
	_, err = wrongIssuer.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	later := NewJWTManager("secret", "ms-theatre", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "iss": "ms-theatre"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), none)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestIdentityFromOIDC(t *testing.T) {
	var c oidcClaims
	c.Sub = "kc-1"
	c.RealmAccess.Roles = []string{"user", "theatre-admin"}

	id := identityFromOIDC(c, "theatre-admin")
	assert.True(t, id.IsStaff)
	assert.False(t, identityFromOIDC(c, "other").IsStaff)
}

type staticVerifier struct {
	id  *models.Identity
	err error
}

func (s staticVerifier) Verify(context.Context, string) (*models.Identity, error) {
	return s.id, s.err
}

func TestChain(t *testing.T) {
	want := &models.Identity{UserID: "u-2"}
	c := Chain{staticVerifier{err: models.ErrUnauthenticated}, staticVerifier{id: want}}
	id, err := c.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, want, id)

	_, err = Chain{}.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func serve(t *testing.T, h http.Handler, header string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestMiddleware(t *testing.T) {
	m := NewJWTManager("secret", "ms-theatre", time.Hour)
	userToken, err := m.Issue(&models.User{ID: "u-1"})
	require.NoError(t, err)
	staffToken, err := m.Issue(&models.User{ID: "s-1", IsStaff: true})
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	})
	authn := Authenticate(m, logger.Discard())

	rec := serve(t, authn(ok), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(t, authn(ok), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, authn(RequireAuth(ok)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, authn(RequireAuth(ok)), "Bearer "+userToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", rec.Body.String())

	rec = serve(t, authn(RequireStaff(ok)), "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, authn(RequireStaff(ok)), "Bearer "+staffToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}
