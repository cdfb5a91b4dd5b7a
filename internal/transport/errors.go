package transport

import (
	"strconv"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/gin-gonic/gin"
)

// fail hands err to the error middleware, which picks the status and body.
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

func badRequest(c *gin.Context, field string, err error) {
	fail(c, entity.NewValidationError(field, err.Error()))
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, entity.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
