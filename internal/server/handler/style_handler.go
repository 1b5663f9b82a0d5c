package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/scholar-hub/internal/metrics"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/pipeline"
	"github.com/azhengyongqin/scholar-hub/internal/runner"
	"github.com/azhengyongqin/scholar-hub/internal/server/dto"
)

// StyleHandler 文本润色任务 API Handler
type StyleHandler struct {
	env  *pipeline.Env
	pool *runner.Pool
}

// NewStyleHandler 创建 StyleHandler
func NewStyleHandler(env *pipeline.Env, pool *runner.Pool) *StyleHandler {
	return &StyleHandler{env: env, pool: pool}
}

// CreateStyle 创建文本润色任务
func (h *StyleHandler) CreateStyle(c *gin.Context) {
	var req dto.CreateStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	params := pipeline.StyleParams{
		OriginalText:      req.OriginalText,
		MustInclude:       req.MustInclude,
		ReferenceKeywords: req.ReferenceKeywords,
		StyleRequirements: req.StyleRequirements,
		StyleExample:      req.StyleExample,
		Mode:              req.Mode,
	}
	if params.Mode == "" {
		params.Mode = pipeline.StyleModeStandard
	}

	rec := h.env.Store.Create(model.RunKindStyle, params)
	metrics.RecordRunCreated(string(model.RunKindStyle))

	if err := h.pool.Submit(func(ctx context.Context) {
		h.env.RunStyle(ctx, rec.RunID, params)
	}); err != nil {
		h.env.Store.Fail(rec.RunID, err.Error())
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.RunCreatedResponse{RunID: rec.RunID})
}

// GetStyle 查询润色任务状态。润色任务没有文件产物，download_url 恒为 null。
func (h *StyleHandler) GetStyle(c *gin.Context) {
	rec, ok := getRun(c, h.env.Store, model.RunKindStyle)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, statusResponse(rec, ""))
}

// GetStyleResults 获取润色结果，仅在任务完成后可用。
func (h *StyleHandler) GetStyleResults(c *gin.Context) {
	rec, ok := getRun(c, h.env.Store, model.RunKindStyle)
	if !ok {
		return
	}
	if rec.Status != model.RunStatusCompleted || rec.Result == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "任务尚未完成或没有结果"})
		return
	}

	c.JSON(http.StatusOK, dto.StyleResultsResponse{
		Texts:       rec.Result.Texts,
		Suggestions: rec.Result.Suggestions,
	})
}
