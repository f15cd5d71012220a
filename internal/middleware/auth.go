package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/studio-booking/internal/dto"
	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const actorKey = "actor"

// Claims are issued by the auth service: sub is the user id.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

func unauthenticated(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, dto.ErrorResponse{
		Code:    dto.CodeNotAuthenticated,
		Message: msg,
	})
}

// Auth validates an HMAC-signed Bearer token and stores the caller as a
// models.Actor in the echo context.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return unauthenticated("missing authorization header")
			}
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				return unauthenticated("invalid authorization header format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return unauthenticated("invalid or expired token")
			}
			if claims.Subject == "" {
				return unauthenticated("token has no subject")
			}

			role := claims.Role
			if role == "" {
				role = models.RoleClient
			}
			c.Set(actorKey, models.Actor{UserID: claims.Subject, Role: role})
			return next(c)
		}
	}
}

// ActorFrom returns the authenticated caller set by Auth.
func ActorFrom(c echo.Context) (models.Actor, bool) {
	actor, ok := c.Get(actorKey).(models.Actor)
	return actor, ok && actor.UserID != ""
}

// SetActor is used by tests and by handlers mounted without Auth.
func SetActor(c echo.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return unauthenticated("not authenticated")
			}
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, dto.ErrorResponse{
				Code:    dto.CodeForbidden,
				Message: "insufficient role",
			})
		}
	}
}
