package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	HTTP   HTTPConfig
	LLM    LLMConfig
	Retry  RetryConfig
	Dirs   DirsConfig
	Search SearchConfig
	Style  StyleConfig
	Admin  AdminConfig
	Runner RunnerConfig
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr string
}

// LLMConfig 大模型服务配置（OpenAI 兼容接口）
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// RetryConfig 关键步骤的重试配置（固定间隔）
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DirsConfig 数据目录配置。Uploads/Outputs/Workspace 均派生自 DataDir。
type DirsConfig struct {
	DataDir   string
	Uploads   string
	Outputs   string
	Workspace string
}

// SearchConfig arXiv 搜索与翻译配置
type SearchConfig struct {
	ArxivBaseURL              string
	DefaultKeywords           []string
	DefaultMaxResults         int
	MaxConcurrentTranslations int
	PacingDelay               time.Duration
	RequestTimeout            time.Duration
}

// StyleConfig 文本润色配置。
// 生成 7 选 4 的常量来自产品约定，保持可配置。
type StyleConfig struct {
	GenerateRounds int
	SelectCount    int
}

// AdminConfig 管理接口配置
type AdminConfig struct {
	Password string
}

// RunnerConfig 后台任务执行池配置
type RunnerConfig struct {
	Workers   int
	QueueSize int
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")

	// 允许从环境变量读取（优先级最高）
	v.AutomaticEnv()

	// 读取配置文件（如果存在）
	_ = v.ReadInConfig() // 忽略错误，因为可能只使用环境变量

	cfg := &Config{}

	// HTTP 配置
	cfg.HTTP.Addr = v.GetString("HTTP_ADDR")
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":28090"
	}

	// LLM 配置
	cfg.LLM.APIKey = v.GetString("OPENAI_API_KEY")
	cfg.LLM.BaseURL = v.GetString("OPENAI_API_BASE")
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	cfg.LLM.Model = v.GetString("MODEL_NAME")
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "qwen3-4b"
	}

	// 重试配置
	cfg.Retry.MaxAttempts = v.GetInt("MAX_RETRIES")
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	cfg.Retry.Delay = v.GetDuration("RETRY_DELAY")
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = 2 * time.Second
	}

	// 目录配置
	cfg.Dirs.DataDir = v.GetString("DATA_DIR")
	if cfg.Dirs.DataDir == "" {
		cfg.Dirs.DataDir = "./scholar_hub_data"
	}
	cfg.Dirs.Uploads = filepath.Join(cfg.Dirs.DataDir, "uploads")
	cfg.Dirs.Outputs = filepath.Join(cfg.Dirs.DataDir, "outputs")
	cfg.Dirs.Workspace = filepath.Join(cfg.Dirs.DataDir, "workspace")

	// 搜索配置
	cfg.Search.ArxivBaseURL = v.GetString("ARXIV_BASE_URL")
	if cfg.Search.ArxivBaseURL == "" {
		cfg.Search.ArxivBaseURL = "https://export.arxiv.org/api/query"
	}
	cfg.Search.DefaultKeywords = v.GetStringSlice("DEFAULT_KEYWORDS")
	if len(cfg.Search.DefaultKeywords) == 0 {
		cfg.Search.DefaultKeywords = []string{
			"large language model RL",
			"LLM RFT",
			"LLM Reinforcement Learning Finetuning",
		}
	}
	cfg.Search.DefaultMaxResults = v.GetInt("DEFAULT_MAX_RESULTS")
	if cfg.Search.DefaultMaxResults <= 0 {
		cfg.Search.DefaultMaxResults = 10
	}
	cfg.Search.MaxConcurrentTranslations = v.GetInt("MAX_CONCURRENT_TRANSLATIONS")
	if cfg.Search.MaxConcurrentTranslations <= 0 {
		cfg.Search.MaxConcurrentTranslations = 3
	}
	cfg.Search.PacingDelay = v.GetDuration("SEARCH_PACING_DELAY")
	if cfg.Search.PacingDelay == 0 {
		cfg.Search.PacingDelay = 3 * time.Second
	}
	cfg.Search.RequestTimeout = v.GetDuration("SEARCH_REQUEST_TIMEOUT")
	if cfg.Search.RequestTimeout == 0 {
		cfg.Search.RequestTimeout = 30 * time.Second
	}

	// 润色配置
	cfg.Style.GenerateRounds = v.GetInt("STYLE_GENERATE_ROUNDS")
	if cfg.Style.GenerateRounds <= 0 {
		cfg.Style.GenerateRounds = 7
	}
	cfg.Style.SelectCount = v.GetInt("STYLE_SELECT_COUNT")
	if cfg.Style.SelectCount <= 0 {
		cfg.Style.SelectCount = 4
	}

	// 管理接口配置
	cfg.Admin.Password = v.GetString("ADMIN_PASSWORD")

	// 执行池配置
	cfg.Runner.Workers = v.GetInt("RUNNER_WORKERS")
	if cfg.Runner.Workers <= 0 {
		cfg.Runner.Workers = 4
	}
	cfg.Runner.QueueSize = v.GetInt("RUNNER_QUEUE_SIZE")
	if cfg.Runner.QueueSize <= 0 {
		cfg.Runner.QueueSize = 64
	}

	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if c.Style.SelectCount > c.Style.GenerateRounds {
		return fmt.Errorf("STYLE_SELECT_COUNT (%d) 不能大于 STYLE_GENERATE_ROUNDS (%d)",
			c.Style.SelectCount, c.Style.GenerateRounds)
	}
	return nil
}
