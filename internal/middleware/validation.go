package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

const (
	// MaxUploadSize 上传压缩包的大小上限（64MB）
	MaxUploadSize = 64 * 1024 * 1024

	// MaxJSONPayloadSize JSON 请求体大小上限（2MB）
	MaxJSONPayloadSize = 2 * 1024 * 1024
)

// RunIDRegex run_id 为 uuid4 的 32 位 hex 形式
var RunIDRegex = regexp.MustCompile(`^[a-f0-9]{32}$`)

// ValidateRunID 验证 run_id 格式
func ValidateRunID(runID string) bool {
	return RunIDRegex.MatchString(runID)
}

// ValidateRunIDParam Gin 中间件：验证路径参数中的 run_id
func ValidateRunIDParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")
		if runID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "run_id 参数缺失",
			})
			c.Abort()
			return
		}

		if !ValidateRunID(runID) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "run_id 格式无效，必须是 32 位十六进制字符串",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// PayloadSizeLimit 请求体大小限制中间件
func PayloadSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "请求体过大",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORSMiddleware CORS 中间件（内部系统可选）
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Password")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
