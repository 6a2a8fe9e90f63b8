package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, detail string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Detail: detail})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, detail string) {
	RespondWithError(c, http.StatusBadRequest, detail)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, detail string) {
	RespondWithError(c, http.StatusInternalServerError, detail)
}

// RespondWithServiceError answers 400 when err wraps a client error of type T
// and 500 otherwise.
func RespondWithServiceError[T error](c *gin.Context, err error) {
	var clientErr T
	if errors.As(err, &clientErr) {
		RespondWithBadRequest(c, err.Error())
		return
	}
	RespondWithInternalError(c, err.Error())
}
