package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dm/pkg/jwt"
	"github.com/weiawesome/wes-io-dm/pkg/response"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	RolesKey      = "roles"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	DefaultCookieName = "jwt"
	tokenQueryKey     = "token"
)

// TokenValidator resolves an access token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates JWT tokens locally against the shared secret.
type AuthMiddleware struct {
	validator  TokenValidator
	cookieName string
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(validator TokenValidator, cookieName string) *AuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &AuthMiddleware{
		validator:  validator,
		cookieName: cookieName,
	}
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
// The token is read from the Authorization header, then the session cookie.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.require(false)
}

// RequireAuthWS is RequireAuth that additionally accepts ?token=, since
// browsers cannot set headers on a WebSocket handshake.
func (m *AuthMiddleware) RequireAuthWS() gin.HandlerFunc {
	return m.require(true)
}

func (m *AuthMiddleware) require(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extractToken(c, allowQuery)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(RolesKey, claims.Roles)

		c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *gin.Context, allowQuery bool) (string, error) {
	if authHeader := c.GetHeader(AuthHeaderKey); authHeader != "" {
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			return "", errors.New("invalid authorization format")
		}
		return strings.TrimPrefix(authHeader, BearerPrefix), nil
	}

	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
		return cookie, nil
	}

	if allowQuery {
		if token := c.Query(tokenQueryKey); token != "" {
			return token, nil
		}
	}

	return "", errors.New("missing authorization token")
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
