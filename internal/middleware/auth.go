package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/internal/utils"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// AuthRequired rejects requests without a valid bearer access token.
func AuthRequired() gin.HandlerFunc {
	return authenticate(false)
}

// StreamAuthRequired also accepts the token as ?access_token=, since
// EventSource cannot send headers.
func StreamAuthRequired() gin.HandlerFunc {
	return authenticate(true)
}

func authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && allowQuery {
			tokenString = c.Query("access_token")
			ok = tokenString != ""
		}
		if !ok {
			response.Abort(c, response.NewUnauthenticated("authorization required"))
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Abort(c, response.NewUnauthenticated("invalid or expired token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// CronAuth admits only callers presenting "Bearer <secret>". An empty
// secret disables the route.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			response.Abort(c, response.NewUnauthenticated("invalid or missing cron secret"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// GetSession returns the caller's session, or nil when unauthenticated.
func GetSession(c *gin.Context) *services.Session {
	id := GetUserID(c)
	if id == 0 {
		return nil
	}
	return &services.Session{UserID: id, Email: GetEmail(c), Role: GetRole(c)}
}
