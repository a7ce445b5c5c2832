package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Huzaifa785/rewear-backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes <= 0 时不限制。Content-Length 已知超限的请求直接拒绝，
// 其余由 MaxBytesReader 在读取时截断，绑定失败后统一改写为 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.TooLarge(c)
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()

		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) && !c.Writer.Written() {
				response.TooLarge(c)
				return
			}
		}
	}
}
