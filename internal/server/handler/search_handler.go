package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/scholar-hub/internal/metrics"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/pipeline"
	"github.com/azhengyongqin/scholar-hub/internal/runner"
	"github.com/azhengyongqin/scholar-hub/internal/server/dto"
)

// SearchHandler 文献搜索任务 API Handler
type SearchHandler struct {
	env  *pipeline.Env
	pool *runner.Pool
}

// NewSearchHandler 创建 SearchHandler
func NewSearchHandler(env *pipeline.Env, pool *runner.Pool) *SearchHandler {
	return &SearchHandler{env: env, pool: pool}
}

// CreateSearch 创建文献搜索任务，立即返回 run_id，执行在后台进行。
func (h *SearchHandler) CreateSearch(c *gin.Context) {
	var req dto.CreateSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	// 日期格式在边界上验证，编排器不再接到格式错误的输入
	if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "start_date 格式无效，应为 YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse("2006-01-02", req.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "end_date 格式无效，应为 YYYY-MM-DD"})
		return
	}

	params := pipeline.SearchParams{
		Keywords:       req.Keywords,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		MaxResults:     req.MaxResults,
		TargetLanguage: req.TargetLanguage,
	}
	if len(params.Keywords) == 0 {
		params.Keywords = h.env.Cfg.Search.DefaultKeywords
	}
	if params.MaxResults == 0 {
		params.MaxResults = h.env.Cfg.Search.DefaultMaxResults
	}

	rec := h.env.Store.Create(model.RunKindSearch, params)
	metrics.RecordRunCreated(string(model.RunKindSearch))

	if err := h.pool.Submit(func(ctx context.Context) {
		h.env.RunSearch(ctx, rec.RunID, params)
	}); err != nil {
		h.env.Store.Fail(rec.RunID, err.Error())
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.RunCreatedResponse{RunID: rec.RunID})
}

// GetSearch 查询搜索任务状态
func (h *SearchHandler) GetSearch(c *gin.Context) {
	rec, ok := getRun(c, h.env.Store, model.RunKindSearch)
	if !ok {
		return
	}
	download := fmt.Sprintf("/api/v1/tasks/search/%s/download", rec.RunID)
	c.JSON(http.StatusOK, statusResponse(rec, download))
}

// DownloadSearch 下载搜索结果 CSV
func (h *SearchHandler) DownloadSearch(c *gin.Context) {
	rec, ok := getRun(c, h.env.Store, model.RunKindSearch)
	if !ok {
		return
	}
	serveArtifact(c, rec)
}
