package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DecompressRequest unwraps gzip request bodies before they reach the
// handlers, so checkout and gateway callback payloads may arrive compressed.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
			c.Next()
			return
		}

		body := c.Request.Body
		gz, err := gzip.NewReader(body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		defer gz.Close()
		defer body.Close()

		c.Request.Body = io.NopCloser(gz)
		c.Request.Header.Del("Content-Encoding")
		c.Next()
	}
}
