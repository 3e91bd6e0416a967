package middleware

import (
	"errors"
	"net/http"
	"strings"

	"utmcouncil/vote-api/pkg/security"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// NewSessionMiddleware requires a valid bearer token and stores its claims in
// the context. Eligibility (verification, voting) is checked by the handlers
// against the store, never against the token.
func NewSessionMiddleware(s *security.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "No token provided",
				"requestID": requestID,
			})
			return
		}

		claims, err := s.Parse(tokenStr)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, security.ErrTokenExpired) {
				msg = "Token expired, please log in again"
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     msg,
				"requestID": requestID,
			})
			return
		}

		c.Set(sessionKey, claims)
		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// NewAdminMiddleware must run after the session middleware
func NewAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		claims := Session(c)
		if claims == nil || !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Admin access required",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}

// Session returns the claims set by the session middleware, nil when the
// request wasn't authenticated
func Session(c *gin.Context) *security.SessionClaims {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}

	claims, _ := v.(*security.SessionClaims)
	return claims
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
