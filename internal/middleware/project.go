package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

// ProjectAccess resolves the caller's membership of the :id project before
// the handler reads its body, so outsiders see 403 whatever they send.
func ProjectAccess(guard *services.Guard, tier services.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil || id == 0 {
			response.Abort(c, response.NewInvalidArgument("invalid id"))
			return
		}

		if _, err := guard.Authorize(c.Request.Context(), GetSession(c), uint(id), tier); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
