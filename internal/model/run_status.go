package model

// RunStatus 统一运行状态枚举（用于 API/前端轮询）。
// 约定：
// - processing: 任务已创建并在后台执行
// - translating: 搜索类任务进入摘要翻译阶段（processing 的子阶段）
// - completed: 成功结束，结果可获取
// - failed: 致命错误结束，日志中带 FATAL_ERROR 标记
type RunStatus string

const (
	RunStatusProcessing  RunStatus = "processing"
	RunStatusTranslating RunStatus = "translating"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
)

func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusProcessing, RunStatusTranslating, RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal 判断状态是否为终态。终态之后记录不再变更。
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RunKind 任务类型
type RunKind string

const (
	RunKindSearch RunKind = "search"
	RunKindMerge  RunKind = "merge"
	RunKindStyle  RunKind = "style"
)

// StyleResult 文本润色任务的最终结果
type StyleResult struct {
	Texts       []string `json:"texts"`
	Suggestions string   `json:"suggestions"`
}
