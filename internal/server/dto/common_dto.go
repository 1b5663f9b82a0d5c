package dto

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunCreatedResponse 任务创建响应
type RunCreatedResponse struct {
	RunID string `json:"run_id" example:"a3f2b18c09d84e71bc5d6a9f01234567"`
}

// RunStatusResponse 任务状态轮询响应。
// download_url 只在任务成功结束且有文件产物时非空。
type RunStatusResponse struct {
	Status      string   `json:"status" example:"processing"`
	Log         []string `json:"log"`
	DownloadURL *string  `json:"download_url"`
}
