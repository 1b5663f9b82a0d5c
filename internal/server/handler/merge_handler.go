package handler

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/scholar-hub/internal/metrics"
	"github.com/azhengyongqin/scholar-hub/internal/middleware"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/pipeline"
	"github.com/azhengyongqin/scholar-hub/internal/runner"
	"github.com/azhengyongqin/scholar-hub/internal/server/dto"
	"github.com/azhengyongqin/scholar-hub/internal/task"
)

// MergeHandler 格式转换任务 API Handler
type MergeHandler struct {
	env  *pipeline.Env
	pool *runner.Pool
}

// NewMergeHandler 创建 MergeHandler
func NewMergeHandler(env *pipeline.Env, pool *runner.Pool) *MergeHandler {
	return &MergeHandler{env: env, pool: pool}
}

// CreateMerge 创建格式转换任务。
// multipart 表单字段：content_file（内容论文包）、format_file（格式模板包）。
// 上传文件以 run_id 为前缀落盘，后台任务再从落盘路径读取。
func (h *MergeHandler) CreateMerge(c *gin.Context) {
	contentFile, err := c.FormFile("content_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少 content_file 上传字段"})
		return
	}
	formatFile, err := c.FormFile("format_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少 format_file 上传字段"})
		return
	}

	contentExt, ok := archiveExt(contentFile.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "content_file 格式不支持，仅接受 .zip / .tar.gz / .tgz"})
		return
	}
	formatExt, ok := archiveExt(formatFile.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "format_file 格式不支持，仅接受 .zip / .tar.gz / .tgz"})
		return
	}
	if contentFile.Size > middleware.MaxUploadSize || formatFile.Size > middleware.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "上传文件过大"})
		return
	}

	// 先生成 run_id 给上传文件命名，参数齐全后再建档：
	// 注册表里的 Params 是不可变快照，建档之后不再改动
	runID := task.NewRunID()
	params := pipeline.MergeParams{
		ContentArchive: filepath.Join(h.env.Cfg.Dirs.Uploads, runID+"_content"+contentExt),
		FormatArchive:  filepath.Join(h.env.Cfg.Dirs.Uploads, runID+"_format"+formatExt),
	}
	rec := h.env.Store.CreateWithID(runID, model.RunKindMerge, params)
	metrics.RecordRunCreated(string(model.RunKindMerge))

	if err := saveUpload(c, contentFile, params.ContentArchive); err != nil {
		h.env.Store.Fail(rec.RunID, "保存上传文件失败: "+err.Error())
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "保存上传文件失败"})
		return
	}
	if err := saveUpload(c, formatFile, params.FormatArchive); err != nil {
		h.env.Store.Fail(rec.RunID, "保存上传文件失败: "+err.Error())
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "保存上传文件失败"})
		return
	}

	if err := h.pool.Submit(func(ctx context.Context) {
		h.env.RunMerge(ctx, rec.RunID, params)
	}); err != nil {
		h.env.Store.Fail(rec.RunID, err.Error())
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.RunCreatedResponse{RunID: rec.RunID})
}

// GetMerge 查询转换任务状态
func (h *MergeHandler) GetMerge(c *gin.Context) {
	rec, ok := getRun(c, h.env.Store, model.RunKindMerge)
	if !ok {
		return
	}
	download := fmt.Sprintf("/api/v1/tasks/merge/%s/download", rec.RunID)
	c.JSON(http.StatusOK, statusResponse(rec, download))
}

// DownloadMerge 下载转换结果压缩包
func (h *MergeHandler) DownloadMerge(c *gin.Context) {
	rec, ok := getRun(c, h.env.Store, model.RunKindMerge)
	if !ok {
		return
	}
	serveArtifact(c, rec)
}

// archiveExt 返回受支持的压缩包后缀，不支持时 ok 为 false。
func archiveExt(filename string) (string, bool) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return ".tar.gz", true
	case strings.HasSuffix(name, ".tgz"):
		return ".tgz", true
	case strings.HasSuffix(name, ".zip"):
		return ".zip", true
	default:
		return "", false
	}
}

func saveUpload(c *gin.Context, fh *multipart.FileHeader, dst string) error {
	return c.SaveUploadedFile(fh, dst)
}
