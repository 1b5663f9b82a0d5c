package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/azhengyongqin/scholar-hub/internal/arxiv"
	"github.com/azhengyongqin/scholar-hub/internal/config"
	"github.com/azhengyongqin/scholar-hub/internal/healthcheck"
	"github.com/azhengyongqin/scholar-hub/internal/llm"
	"github.com/azhengyongqin/scholar-hub/internal/logger"
	"github.com/azhengyongqin/scholar-hub/internal/pipeline"
	"github.com/azhengyongqin/scholar-hub/internal/runner"
	httpserver "github.com/azhengyongqin/scholar-hub/internal/server"
	"github.com/azhengyongqin/scholar-hub/internal/task"
)

func main() {
	// .env 存在时先加载，环境变量优先级更高
	_ = godotenv.Load()

	// 初始化结构化日志（开发模式）
	if err := logger.Init(false); err != nil {
		logger.L.Fatal().Err(err).Msg("初始化日志失败")
		os.Exit(1)
	}
	defer logger.Sync()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.L.Fatal().Err(err).Msg("加载配置失败")
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		logger.L.Fatal().Err(err).Msg("配置验证失败")
	}

	// 占位 API Key 只警告不拦截，方便本地起服务调页面
	if strings.HasPrefix(cfg.LLM.APIKey, "sk-placeholder") || cfg.LLM.APIKey == "changeme" {
		logger.L.Warn().Msg("WARNING: OPENAI_API_KEY 是占位值，模型调用将会失败")
	}

	// 准备数据目录
	for _, dir := range []string{cfg.Dirs.Uploads, cfg.Dirs.Outputs, cfg.Dirs.Workspace} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.L.Fatal().Err(err).Str("dir", dir).Msg("创建数据目录失败")
		}
	}

	logger.L.Info().
		Str("http", cfg.HTTP.Addr).
		Str("model", cfg.LLM.Model).
		Str("data_dir", cfg.Dirs.DataDir).
		Msg("服务启动")

	env := &pipeline.Env{
		Store: task.NewStore(),
		LLM:   llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model),
		Arxiv: arxiv.NewClient(cfg.Search.ArxivBaseURL, cfg.Search.RequestTimeout),
		Cfg:   cfg,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := runner.NewPool(ctx, cfg.Runner.Workers, cfg.Runner.QueueSize)

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.NewRouter(httpserver.Deps{
			Env:           env,
			Pool:          pool,
			HealthChecker: healthcheck.NewHealthChecker(cfg),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.L.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP 服务监听")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal().Err(err).Msg("HTTP 服务错误")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)

	// 等在跑的编排任务收尾，注册表是进程内的，重启后任务即丢失
	pool.Stop()
	logger.L.Info().Msg("服务已优雅关闭")
}
