package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
)

// FirmMiddleware resolves the session user into the request's firm scope.
// Every query below this point is tenant-scoped to that firm id. Admin users
// may act on another firm by passing the firm-id header.
func FirmMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok || username == "" {
			c.Next()
			return
		}

		user, err := models.GetUserByUsername(ctx, username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		firmId := user.FirmId
		isAdmin := user.Role == models.UserRoleAdmin
		if isAdmin {
			if override := c.GetHeader("firm-id"); override != "" {
				firmId = override
			}
			ctx = context.WithValue(ctx, utils.ContextKeyIsAdmin, true)
		}
		ctx = utils.SetFirmIdInContext(ctx, firmId)
		ctx = context.WithValue(ctx, utils.ContextKeyUserId, user.ID)
		ctx = context.WithValue(ctx, utils.ContextKeyUserName, user.Name)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession rejects requests with no authenticated user.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if firmId, ok := utils.GetFirmIdFromContext(c.Request.Context()); !ok || firmId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
