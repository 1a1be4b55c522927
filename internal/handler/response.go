package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"botdesk/internal/apperr"
)

// Every endpoint answers with a success flag plus a message; handlers merge
// endpoint-specific fields into the same object.
func respondOK(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// respondErr maps the error taxonomy onto HTTP statuses. Upstream failures
// keep the status the orchestrator answered with.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.StatusOf(err), gin.H{
		"success": false,
		"message": apperr.MessageOf(err),
	})
}
