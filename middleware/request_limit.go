package middleware

import (
	"fmt"
	"net/http"

	"manuals-backend/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit rejects bodies larger than maxSize and caps reads at that size.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxSize <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxSize {
			RespondBodyTooLarge(c, maxSize)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// RespondBodyTooLarge answers 413 for a body over limit bytes. Handlers call it
// when a read stops at the MaxBytesReader installed by RequestSizeLimit.
func RespondBodyTooLarge(c *gin.Context, limit int64) {
	size := fmt.Sprintf("%d MB", limit/(1024*1024))
	if limit < 1024*1024 {
		size = fmt.Sprintf("%d bytes", limit)
	}
	utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "Request body exceeds maximum size of "+size)
}
