package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/auth"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyUserName holds the key for the session user's name in Gin context.
	ContextKeyUserName = "userName"

	// SessionCookie is the cookie the browser client carries the session token in.
	SessionCookie = "session_token"
)

// sessionToken extracts the token from the Authorization header, falling back to the
// session cookie. A malformed header is reported as ok=false.
func sessionToken(c *gin.Context) (token string, ok bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", true
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := sessionToken(c)
		if !ok {
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}
		if tokenString == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		// Set user info in context for handlers to use
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserName, claims.Name)

		c.Next()
	}
}

// OptionalAuthMiddleware sets the session user when a valid token is presented and lets
// anonymous requests through untouched.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := sessionToken(c); ok && tokenString != "" {
			if claims, err := auth.ValidateJWT(tokenString, jwtSecret); err == nil {
				c.Set(ContextKeyUserID, claims.UserID)
				c.Set(ContextKeyUserName, claims.Name)
			}
		}
		c.Next()
	}
}

// UserIDFrom returns the session user set by one of the auth middlewares.
func UserIDFrom(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "kind": apperr.KindAuthorization})
}
