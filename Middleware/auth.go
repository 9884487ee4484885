package Middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/Models"
)

const sessionKey = "session"

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuth verifies the bearer ID token and stores the caller's Session
// in the context. EventSource clients cannot set headers, so an access_token
// query parameter is accepted as well.
func FirebaseAuth(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			logger.Debug("rejected id token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(sessionKey, SessionFromToken(token))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

// SessionFromToken reads the role custom claim; accounts without one are patients.
func SessionFromToken(token *auth.Token) Models.Session {
	claim := func(name string) string {
		if v, ok := token.Claims[name].(string); ok {
			return v
		}
		return ""
	}
	role := Models.Role(claim("role"))
	if !role.IsValid() {
		role = Models.RolePatient
	}
	return Models.Session{
		UID:   token.UID,
		Role:  role,
		Name:  claim("name"),
		Email: claim("email"),
		Phone: claim("phone_number"),
	}
}

// CurrentSession returns the session set by FirebaseAuth.
func CurrentSession(c *gin.Context) Models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(Models.Session); ok {
			return s
		}
	}
	return Models.Session{}
}

func SetSession(c *gin.Context, s Models.Session) {
	c.Set(sessionKey, s)
}

// RequireDoctor lets doctors and admins through.
func RequireDoctor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).IsDoctor() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "doctor access required"})
			return
		}
		c.Next()
	}
}

func RequirePatient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).IsPatient() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "patient access required"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c).Role != Models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
