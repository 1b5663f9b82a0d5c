package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/azhengyongqin/scholar-hub/internal/healthcheck"
	"github.com/azhengyongqin/scholar-hub/internal/middleware"
	"github.com/azhengyongqin/scholar-hub/internal/pipeline"
	"github.com/azhengyongqin/scholar-hub/internal/runner"
	"github.com/azhengyongqin/scholar-hub/internal/server/handler"
)

// Deps 路由依赖
type Deps struct {
	// Env 编排器运行环境（任务注册表、模型客户端、配置）
	Env *pipeline.Env

	// Pool 后台执行池
	Pool *runner.Pool

	// HealthChecker 健康检查器
	HealthChecker *healthcheck.HealthChecker
}

// NewRouter 提供 Gin HTTP API
func NewRouter(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// 全局中间件
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 创建各个 handler 实例
	healthHandler := handler.NewHealthHandler(deps.HealthChecker)
	searchHandler := handler.NewSearchHandler(deps.Env, deps.Pool)
	mergeHandler := handler.NewMergeHandler(deps.Env, deps.Pool)
	styleHandler := handler.NewStyleHandler(deps.Env, deps.Pool)
	adminHandler := handler.NewAdminHandler(deps.Env.Cfg, deps.Env.Store)

	// 健康检查路由
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Prometheus metrics 端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// 文献搜索任务（JSON 请求体大小限制只挂在创建接口上）
		api.POST("/tasks/search",
			middleware.PayloadSizeLimit(middleware.MaxJSONPayloadSize), searchHandler.CreateSearch)
		api.GET("/tasks/search/:run_id",
			middleware.ValidateRunIDParam(), searchHandler.GetSearch)
		api.GET("/tasks/search/:run_id/download",
			middleware.ValidateRunIDParam(), searchHandler.DownloadSearch)

		// 格式转换任务（multipart 上传，大小限制按上传包放宽）
		api.POST("/tasks/merge",
			middleware.PayloadSizeLimit(2*middleware.MaxUploadSize), mergeHandler.CreateMerge)
		api.GET("/tasks/merge/:run_id",
			middleware.ValidateRunIDParam(), mergeHandler.GetMerge)
		api.GET("/tasks/merge/:run_id/download",
			middleware.ValidateRunIDParam(), mergeHandler.DownloadMerge)

		// 文本润色任务
		api.POST("/tasks/style",
			middleware.PayloadSizeLimit(middleware.MaxJSONPayloadSize), styleHandler.CreateStyle)
		api.GET("/tasks/style/:run_id",
			middleware.ValidateRunIDParam(), styleHandler.GetStyle)
		api.GET("/tasks/style/:run_id/results",
			middleware.ValidateRunIDParam(), styleHandler.GetStyleResults)

		// 管理接口
		api.GET("/admin/status",
			middleware.AdminAuth(deps.Env.Cfg.Admin.Password), adminHandler.Status)
	}

	return r
}
