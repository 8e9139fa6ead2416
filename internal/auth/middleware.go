package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sessionhistory/internal/models"
	"sessionhistory/internal/observability"
)

const (
	userIDContextKey    = "auth_user_id"
	authTokenContextKey = "auth_token"

	HeaderName     = "Authorization"
	CookieName     = "auth_token"
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// Middleware validates bearer tokens and stores the authenticated user in the context.
func Middleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken := extractToken(c)
		if authToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		ctx := c.Request.Context()
		userID, err := authn.Authenticate(ctx, authToken)
		if err != nil {
			if !isTokenError(err) {
				observability.LoggerFromContext(ctx).Warn("authenticate request", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": publicMessage(err)})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Set(authTokenContextKey, authToken)
		c.Request = c.Request.WithContext(models.ContextWithCaller(ctx, models.Caller{UserID: userID}))
		c.Next()
	}
}

// UserIDFromContext retrieves the authenticated user id from the gin context.
func UserIDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok
}

// AuthTokenFromContext retrieves the bearer token captured by the middleware.
func AuthTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(authTokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(HeaderName)
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	return ""
}

func isTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenRequired)
}

// publicMessage hides backend failures behind the generic 401 message.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return ErrTokenExpired.Error()
	case errors.Is(err, ErrInvalidToken):
		return ErrInvalidToken.Error()
	default:
		return "authorization required"
	}
}
