package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ScopeRead is the scope carried by tokens that may call the JSON API.
const ScopeRead = "restaurants:read"

// APIToken validates an HS256 bearer token and stores its subject and scope
// in the context.  With an empty secret the API is public and the
// middleware does nothing.
func APIToken(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := jwt.MapClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			sub, _ := claims.GetSubject()
			scope, _ := claims["scope"].(string)
			c.Set(ctxSubject, sub)
			c.Set(ctxScope, scope)
			return next(c)
		}
	}
}

// RequireScope rejects requests whose token lacks scope.  It only applies
// when secret is set, mirroring APIToken.
func RequireScope(secret, scope string) echo.MiddlewareFunc {
	if secret == "" {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			have, _ := c.Get(ctxScope).(string)
			for _, s := range strings.Fields(have) {
				if s == scope {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
