package dto

// CreateStyleRequest 文本润色任务创建请求
type CreateStyleRequest struct {
	OriginalText      string   `json:"original_text" binding:"required"`
	MustInclude       []string `json:"must_include"`
	ReferenceKeywords []string `json:"reference_keywords"`
	StyleRequirements string   `json:"style_requirements"`
	StyleExample      string   `json:"style_example"`
	Mode              string   `json:"mode" binding:"omitempty,oneof=standard elevated" example:"standard"`
}

// StyleResultsResponse 润色结果响应
type StyleResultsResponse struct {
	Texts       []string `json:"texts"`
	Suggestions string   `json:"suggestions"`
}
