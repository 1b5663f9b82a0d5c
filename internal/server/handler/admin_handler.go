package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/scholar-hub/internal/config"
	"github.com/azhengyongqin/scholar-hub/internal/server/dto"
	"github.com/azhengyongqin/scholar-hub/internal/sysstat"
	"github.com/azhengyongqin/scholar-hub/internal/task"
)

// AdminHandler 管理接口 Handler
type AdminHandler struct {
	cfg   *config.Config
	store *task.Store
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(cfg *config.Config, store *task.Store) *AdminHandler {
	return &AdminHandler{cfg: cfg, store: store}
}

// Status 返回磁盘占用、数据目录大小和任务数。
// 需要 X-Admin-Password 请求头（由 AdminAuth 中间件校验）。
func (h *AdminHandler) Status(c *gin.Context) {
	du, err := sysstat.Disk(h.cfg.Dirs.DataDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "读取磁盘信息失败: " + err.Error()})
		return
	}

	dirs := map[string]string{}
	for name, dir := range map[string]string{
		"uploads":   h.cfg.Dirs.Uploads,
		"outputs":   h.cfg.Dirs.Outputs,
		"workspace": h.cfg.Dirs.Workspace,
	} {
		size, err := sysstat.DirSize(dir)
		if err != nil {
			dirs[name] = "error: " + err.Error()
			continue
		}
		dirs[name] = fmt.Sprintf("%.2f", float64(size)/(1<<20))
	}

	c.JSON(http.StatusOK, dto.AdminStatusResponse{
		Disk: dto.DiskStatus{
			TotalGB: fmt.Sprintf("%.2f", float64(du.Total)/(1<<30)),
			UsedGB:  fmt.Sprintf("%.2f", float64(du.Used)/(1<<30)),
			FreeGB:  fmt.Sprintf("%.2f", float64(du.Free)/(1<<30)),
		},
		DataDirsMB: dirs,
		ActiveRuns: h.store.Len(),
	})
}
