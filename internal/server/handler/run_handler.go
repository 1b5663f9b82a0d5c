package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/server/dto"
	"github.com/azhengyongqin/scholar-hub/internal/task"
)

// getRun 按 run_id 和任务类型取记录。未找到或类型不匹配都按 404 处理，
// 绝不把"未知 id"伪装成 processing。
func getRun(c *gin.Context, store *task.Store, kind model.RunKind) (task.Record, bool) {
	rec, ok := store.Get(c.Param("run_id"))
	if !ok || rec.Kind != kind {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "未找到指定的任务"})
		return task.Record{}, false
	}
	return rec, true
}

// statusResponse 把任务记录投影为客户端可见的状态响应。
func statusResponse(rec task.Record, downloadPath string) dto.RunStatusResponse {
	resp := dto.RunStatusResponse{
		Status: string(rec.Status),
		Log:    rec.Log,
	}
	if rec.Status == model.RunStatusCompleted && rec.OutputPath != "" && downloadPath != "" {
		resp.DownloadURL = &downloadPath
	}
	return resp
}

// serveArtifact 下载产物文件。任务未完成或产物缺失都按 404 处理。
func serveArtifact(c *gin.Context, rec task.Record) {
	if rec.Status != model.RunStatusCompleted || rec.OutputPath == "" {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "任务尚未完成或没有产物"})
		return
	}
	if _, err := os.Stat(rec.OutputPath); err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "产物文件不存在"})
		return
	}
	c.FileAttachment(rec.OutputPath, filepath.Base(rec.OutputPath))
}
