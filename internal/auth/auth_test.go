package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expiresAt, err := tm.GenerateToken("operator-1", domain.SubjectTypeStaff)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestParseTokenRejectsForeignOrIncompleteTokens(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	expires := jwt.NewNumericDate(time.Now().Add(time.Minute))

	foreignIssuer := signRaw(t, jwt.SigningMethodHS256, &Claims{
		SubjectID: "x", Subject: domain.SubjectTypeStaff,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", ExpiresAt: expires},
	})
	_, err := tm.ParseToken(foreignIssuer)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	noExpiry := signRaw(t, jwt.SigningMethodHS256, &Claims{
		SubjectID: "x", Subject: domain.SubjectTypeStaff,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer},
	})
	_, err = tm.ParseToken(noExpiry)
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)

	otherAlg := signRaw(t, jwt.SigningMethodHS512, &Claims{
		SubjectID: "x", Subject: domain.SubjectTypeStaff,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, ExpiresAt: expires},
	})
	_, err = tm.ParseToken(otherAlg)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("other", 5).GenerateToken("operator-1", domain.SubjectTypeStaff)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := tm.GenerateToken("operator-1", domain.SubjectTypeStaff)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func newProtectedApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(err.Error())
		},
	})
	app.Get("/private", NewAuthMiddleware(tm).Handle, RequireStaff(), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("no principal")
		}
		return c.SendString(principal.SubjectID)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newProtectedApp(tm)

	staffToken, _, err := tm.GenerateToken("operator-1", domain.SubjectTypeStaff)
	require.NoError(t, err)
	strangerToken, _, err := tm.GenerateToken("someone", domain.SubjectType("END_USER"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-token", status: http.StatusUnauthorized},
		{name: "unknown subject", header: "Bearer " + strangerToken, status: http.StatusUnauthorized},
		{name: "staff", header: "bearer " + staffToken, status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.status == http.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, "operator-1", string(body))
			}
		})
	}
}

func TestRequireStaffWithoutPrincipal(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/", RequireStaff(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
