package healthcheck

import (
	"os"
	"path/filepath"

	"github.com/azhengyongqin/scholar-hub/internal/config"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	cfg *config.Config
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(cfg *config.Config) *HealthChecker {
	return &HealthChecker{cfg: cfg}
}

// CheckResult 健康检查结果
type CheckResult struct {
	Status  string            `json:"status"` // "ok" or "error"
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// LivenessCheck 存活检查（快速返回，不检查依赖）
func (h *HealthChecker) LivenessCheck() CheckResult {
	return CheckResult{
		Status: "ok",
		Checks: map[string]string{
			"service": "running",
		},
	}
}

// ReadinessCheck 就绪检查：数据目录可写、模型接口已配置。
func (h *HealthChecker) ReadinessCheck() CheckResult {
	result := CheckResult{
		Checks: make(map[string]string),
	}

	for name, dir := range map[string]string{
		"uploads_dir":   h.cfg.Dirs.Uploads,
		"outputs_dir":   h.cfg.Dirs.Outputs,
		"workspace_dir": h.cfg.Dirs.Workspace,
	} {
		if err := checkWritable(dir); err != nil {
			result.Checks[name] = "error: " + err.Error()
			result.Status = "error"
		} else {
			result.Checks[name] = "ok"
		}
	}

	if h.cfg.LLM.APIKey == "" {
		result.Checks["llm"] = "error: OPENAI_API_KEY 未配置"
		result.Status = "error"
	} else {
		result.Checks["llm"] = "ok"
	}

	if result.Status == "" {
		result.Status = "ok"
	}
	return result
}

// checkWritable 在目录里写入并删除一个探针文件。
func checkWritable(dir string) error {
	probe := filepath.Join(dir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
