package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, role models.Role, expires time.Time) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	g := e.Group("", Auth(testSecret))
	g.GET("/whoami", func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, map[string]string{"user": actor.UserID, "role": string(actor.Role)})
	})
	g.GET("/staff", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequireRole(models.RoleStaff))
	return e
}

func get(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidToken(t *testing.T) {
	e := newAuthServer()
	token := signToken(t, testSecret, "user-1", models.RoleInstructor, time.Now().Add(time.Hour))

	rec := get(e, "/whoami", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"user-1","role":"instructor"}`, rec.Body.String())
}

func TestAuth_DefaultsToClientRole(t *testing.T) {
	e := newAuthServer()
	token := signToken(t, testSecret, "user-1", "", time.Now().Add(time.Hour))

	rec := get(e, "/whoami", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"user-1","role":"client"}`, rec.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other", "user-1", models.RoleClient, time.Now().Add(time.Hour))},
		{"expired", "Bearer " + signToken(t, testSecret, "user-1", models.RoleClient, time.Now().Add(-time.Minute))},
		{"no subject", "Bearer " + signToken(t, testSecret, "", models.RoleClient, time.Now().Add(time.Hour))},
	}

	e := newAuthServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, "/whoami", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"NOT_AUTHENTICATED"`)
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := newAuthServer()

	client := signToken(t, testSecret, "user-1", models.RoleClient, time.Now().Add(time.Hour))
	rec := get(e, "/staff", "Bearer "+client)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)

	staff := signToken(t, testSecret, "desk-1", models.RoleStaff, time.Now().Add(time.Hour))
	rec = get(e, "/staff", "Bearer "+staff)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
