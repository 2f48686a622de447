package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/batch"
	"resume-analyzer/internal/config"
	"resume-analyzer/internal/extraction"
	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/logger"
	"resume-analyzer/internal/prompt"
	"resume-analyzer/internal/readiness"
	"resume-analyzer/internal/source"
	"resume-analyzer/internal/storage"
	"resume-analyzer/internal/tracing"
)

// application 按配置组装好的整条流水线
type application struct {
	cfg          *config.Config
	storage      *storage.Storage
	tracing      *tracing.Provider
	resolver     *source.Resolver
	engine       *extraction.Engine
	provider     llm.Provider
	orchestrator *analysis.Orchestrator
	assessor     *readiness.Assessor
	runner       *batch.Runner
	promptStore  *prompt.RedisStore
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	tp, err := tracing.InitProvider(ctx, cfg.Tracing, version)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, tracing: tp}

	app.storage, err = storage.NewStorage(ctx, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}

	var objects storage.ObjectReader
	if app.storage.MinIO != nil {
		objects = app.storage.MinIO
	}
	app.resolver = source.NewResolver(objects)

	app.engine, err = extraction.NewEngine(ctx, cfg.Extraction, app.resolver,
		extraction.WithLogger(logger.Component("extraction")))
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("初始化提取引擎失败: %w", err)
	}

	rendererOptions := []prompt.RendererOption{
		prompt.WithCustomerID(cfg.Prompt.CustomerID),
		prompt.WithLogger(logger.Component("prompt")),
	}
	if app.storage.Redis != nil {
		app.promptStore = prompt.NewRedisStore(app.storage.Redis)
		rendererOptions = append(rendererOptions, prompt.WithStore(app.promptStore))
	}
	renderer := prompt.NewRenderer(rendererOptions...)

	app.provider, err = newProvider(ctx, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	invokerOptions := append(llm.OptionsFromConfig(cfg.Analysis), llm.WithInvokerLogger(logger.Component("invoker")))
	invoker := llm.NewInvoker(app.provider, invokerOptions...)

	app.assessor = readiness.NewAssessor(renderer, invoker, cfg.ModelForRoute(false),
		readiness.WithLogger(logger.Component("readiness")))
	app.orchestrator = analysis.NewOrchestrator(
		analysis.NewBuilder(renderer, cfg.ModelForRoute(false), cfg.ModelForRoute(true)),
		invoker,
		app.resolver,
		analysis.WithReadiness(app.assessor),
		analysis.WithLogger(logger.Component("analysis")),
	)

	runnerOptions := []batch.Option{
		batch.WithConcurrency(cfg.Batch.MaxConcurrency),
		batch.WithLogger(logger.Component("batch")),
	}
	if app.storage.RabbitMQ != nil {
		notifier, err := batch.NewQueueNotifier(app.storage.RabbitMQ, cfg.RabbitMQ.BatchEventsExchange, cfg.RabbitMQ.BatchDoneRoutingKey)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		runnerOptions = append(runnerOptions, batch.WithNotifier(notifier))
	}
	app.runner = batch.NewRunner(app.orchestrator, runnerOptions...)
	return app, nil
}

// newProvider 按 analysis.provider 选择 Gemini 或通义千问，并按需加上限流
func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	var provider llm.Provider
	switch cfg.Analysis.Provider {
	case "qwen":
		chatModel, err := llm.NewQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL,
			llm.WithQwenDefaults(cfg.Analysis.Temperature, cfg.Analysis.TopP, int(cfg.Analysis.MaxOutputTokens)),
			llm.WithQwenLogger(logger.Component("qwen")),
		)
		if err != nil {
			return nil, fmt.Errorf("初始化通义千问模型失败: %w", err)
		}
		provider = llm.NewEinoProvider(chatModel, llm.DefaultSystemPrompt)
	case "gemini", "":
		gemini, err := llm.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Analysis,
			llm.WithGeminiLogger(logger.Component("gemini")))
		if err != nil {
			return nil, fmt.Errorf("初始化 Gemini 失败: %w", err)
		}
		provider = gemini
	default:
		return nil, fmt.Errorf("未知的分析服务: %s", cfg.Analysis.Provider)
	}
	return llm.NewRateLimitedProvider(provider, cfg.Analysis.QPM), nil
}

// probe 健康检查使用的服务探测
func (a *application) probe(ctx context.Context) llm.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return llm.Probe(ctx, a.provider, a.cfg.ModelForRoute(false))
}

// Close 关闭外部连接并刷新链路数据
func (a *application) Close(ctx context.Context) error {
	var errs []error
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		errs = append(errs, a.tracing.Shutdown(shutdownCtx))
	}
	return errors.Join(errs...)
}
