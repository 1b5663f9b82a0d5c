package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"github.com/azhengyongqin/scholar-hub/internal/arxiv"
	"github.com/azhengyongqin/scholar-hub/internal/config"
	"github.com/azhengyongqin/scholar-hub/internal/llm"
	"github.com/azhengyongqin/scholar-hub/internal/logger"
	"github.com/azhengyongqin/scholar-hub/internal/metrics"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/task"
)

// Env 各编排器共享的运行环境。所有依赖显式注入，便于测试替换。
type Env struct {
	Store *task.Store
	LLM   llm.Client
	Arxiv *arxiv.Client
	Cfg   *config.Config
}

// workspace 创建任务专属的临时工作目录，返回目录路径和清理函数。
// 清理函数无条件删除整个目录，编排器必须 defer 调用，
// 保证任何退出路径（成功、失败、panic 之外的异常）都会释放磁盘资源。
func (e *Env) workspace(runID string) (string, func(), error) {
	dir := filepath.Join(e.Cfg.Dirs.Workspace, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("清理工作目录失败")
			return
		}
		logger.Info().Str("run_id", runID).Msg("INFO: 临时工作目录已清理")
	}
	return dir, cleanup, nil
}

// fail 统一的致命错误出口：写日志、置 failed、记指标。
func (e *Env) fail(runID string, kind model.RunKind, start time.Time, msg string) {
	l := logger.WithRunID(runID)
	l.Error().Msg(msg)
	e.Store.Fail(runID, msg)
	metrics.RecordRunCompleted(string(kind), string(model.RunStatusFailed), time.Since(start).Seconds())
}

// complete 成功出口：登记产物路径并记指标。
func (e *Env) complete(runID string, kind model.RunKind, start time.Time, outputPath string) {
	e.Store.Complete(runID, outputPath)
	metrics.RecordRunCompleted(string(kind), string(model.RunStatusCompleted), time.Since(start).Seconds())
}
