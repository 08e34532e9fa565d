package middleware

import "github.com/labstack/echo/v4"

// Context keys set by APIToken.
const (
	ctxSubject = "token_subject"
	ctxScope   = "token_scope"
)

// anonymous is the subject of requests without an API token.
const anonymous = "anon"

// subject returns the token subject stored by APIToken, or anonymous.
func subject(c echo.Context) string {
	if s, ok := c.Get(ctxSubject).(string); ok && s != "" {
		return s
	}
	return anonymous
}
