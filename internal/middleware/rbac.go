package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
	"github.com/noah-isme/club-activity-api/pkg/response"
)

// RequireAdmin allows only administrators through.
func RequireAdmin() gin.HandlerFunc {
	return authorize(false)
}

// AdminOrSelf allows administrators and the user named by the :id parameter.
func AdminOrSelf() gin.HandlerFunc {
	return authorize(true)
}

func authorize(allowSelf bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Admin {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
