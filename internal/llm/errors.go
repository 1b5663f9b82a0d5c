package llm

import "errors"

var (
	// ErrEmptyResponse 模型返回了空的或无效的补全内容
	ErrEmptyResponse = errors.New("LLM 返回了无效或空的响应")

	// ErrMalformedList 模型输出无法解析为 JSON 列表（含一次挽救尝试）
	ErrMalformedList = errors.New("LLM 返回了无效的 JSON 列表")
)
