package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

// pathID parses a positive numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
