package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// BodyLimit caps request bodies at maxBytes. Requests that declare a larger
// Content-Length are refused up front; the rest are read through
// http.MaxBytesReader so binding fails once the cap is crossed.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, err := range c.Errors {
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
				return
			}
		}
	}
}
