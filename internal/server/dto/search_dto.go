package dto

// CreateSearchRequest 文献搜索任务创建请求。
// keywords 为空时使用服务端默认关键词集。
type CreateSearchRequest struct {
	Keywords       []string `json:"keywords" example:"large language model RL"`
	StartDate      string   `json:"start_date" binding:"required" example:"2024-01-01"`
	EndDate        string   `json:"end_date" binding:"required" example:"2024-01-31"`
	MaxResults     int      `json:"max_results" binding:"omitempty,min=1,max=500" example:"10"`
	TargetLanguage string   `json:"target_language" example:"中文"`
}
