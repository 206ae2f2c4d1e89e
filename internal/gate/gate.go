// Package gate checks every inbound request against the shared secret before
// any handler runs.
package gate

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Challenge is sent with every rejection.
const Challenge = `Basic realm="dexter"`

// Gate is a stateless credential check. The zero value rejects everything.
type Gate struct {
	secret   string
	username string
}

// New returns a gate accepting the secret as a Bearer token, or as the
// password of Basic credentials. An empty username accepts any user name.
func New(secret, username string) Gate {
	return Gate{secret: secret, username: username}
}

// Authorize reports whether an Authorization header value grants access.
func (g Gate) Authorize(header string) bool {
	if g.secret == "" {
		return false
	}
	scheme, credentials, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return false
	}
	credentials = strings.TrimSpace(credentials)

	switch strings.ToLower(scheme) {
	case "basic":
		return g.authorizeBasic(credentials)
	case "bearer":
		return equal(credentials, g.secret)
	}
	return false
}

func (g Gate) authorizeBasic(encoded string) bool {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return false
	}
	if !equal(pass, g.secret) {
		return false
	}
	return g.username == "" || equal(user, g.username)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Middleware rejects unauthorized requests with 401 and a challenge.
func (g Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Authorize(c.Request().Header.Get(echo.HeaderAuthorization)) {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, Challenge)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
