package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithBadGateway sends a 502 Bad Gateway response for failures of the
// upstream completion service and aborts the request.
func AbortWithBadGateway(c *gin.Context, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(http.StatusBadGateway, NewAPIError(message, details))
}
