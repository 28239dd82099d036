package middlewares

import (
	"net/http"
	"strings"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/gin-gonic/gin"
)

const (
	RoleAuditor    = "AUDITOR"
	RoleContractor = "CONTRACTOR"
)

// SessionMiddleware resolves the "token" header to a username through Redis
// ("Token:<token>") and the user's role ("Role:<username>"), and copies the
// "business-id" header into the request context.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if businessId := strings.TrimSpace(c.Request.Header.Get("business-id")); businessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, businessId)
		}

		token := c.Request.Header.Get("token")
		if token == "" {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue(ctx, "Token:"+token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		role, _, err := config.GetRedisValue(ctx, "Role:"+username)
		if err != nil {
			config.LogError(config.GetLogger(), "SessionMiddleware", "SessionMiddleware", "reading role", username, err)
		}

		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetUsernameInContext(ctx, username)
		ctx = utils.SetRoleInContext(ctx, strings.ToUpper(role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireBusiness rejects requests without a business-id header.
func RequireBusiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetBusinessIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business-id header is required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSession rejects anonymous requests unless AUTH_REQUIRED is off.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.AuthRequired() {
			c.Next()
			return
		}
		if username, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok || username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAuditor guards review, resolve and threshold changes.
func RequireAuditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.AuthRequired() {
			c.Next()
			return
		}
		if role, _ := utils.GetRoleFromContext(c.Request.Context()); role != RoleAuditor {
			c.JSON(http.StatusForbidden, gin.H{"error": "auditor role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
