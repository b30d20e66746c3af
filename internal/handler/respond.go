package handler

import (
	"github.com/gin-gonic/gin"

	apperr "lms_backend/pkg/errors"
)

// respondError translates a service error into an HTTP status and a JSON
// error body.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatusFromError(err), gin.H{"error": err.Error()})
}
