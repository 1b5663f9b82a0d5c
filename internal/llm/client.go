package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/azhengyongqin/scholar-hub/internal/logger"
	"github.com/azhengyongqin/scholar-hub/internal/metrics"
)

// Request 一次补全调用的参数
type Request struct {
	System      string
	Prompt      string
	Temperature float32
}

// Client 语言模型补全接口。实现必须把空响应报告为错误，
// 瞬时失败以 error 形式向上传播，由调用方决定是否重试。
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient 基于 OpenAI 兼容接口的实现（base URL 和模型名可配置）。
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient 创建 OpenAI 兼容客户端
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete 执行一次补全调用并返回去除围栏标记后的文本。
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	logger.Debug().Str("prompt_head", head(req.Prompt, 400)).Msg("正在与 LLM 交互...")

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		metrics.RecordLLMCall("error")
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.RecordLLMCall("empty")
		return "", ErrEmptyResponse
	}

	content := StripFences(resp.Choices[0].Message.Content)
	if content == "" {
		metrics.RecordLLMCall("empty")
		return "", ErrEmptyResponse
	}

	metrics.RecordLLMCall("ok")
	logger.Debug().Str("response_head", head(content, 500)).Msg("LLM 响应")
	return content, nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
