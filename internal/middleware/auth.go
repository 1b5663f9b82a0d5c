package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth 管理接口的共享密钥校验（X-Admin-Password 请求头）。
// 常数时间比较，避免时间侧信道。
func AdminAuth(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Password")
		if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "管理密码缺失或错误",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
