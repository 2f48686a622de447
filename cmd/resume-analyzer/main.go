package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"resume-analyzer/internal/api/handler"
	"resume-analyzer/internal/api/router"
	"resume-analyzer/internal/batch"
	"resume-analyzer/internal/config"
	"resume-analyzer/internal/extraction"
	"resume-analyzer/internal/logger"
	"resume-analyzer/internal/types"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-analyzer" //nolint:gochecknoglobals
)

func main() {
	var (
		configPath string
		mode       string
		files      []string
		jobPath    string
		format     string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时按默认位置查找")
	pflag.StringVarP(&mode, "mode", "m", "serve", "运行模式: extract, analyze, batch, serve, seed-prompts")
	pflag.StringArrayVarP(&files, "file", "f", nil, "简历文件，可重复指定；minio://bucket/object 表示对象存储")
	pflag.StringVarP(&jobPath, "job", "j", "", "岗位上下文 JSON 文件")
	pflag.StringVar(&format, "format", "", "文档格式 (pdf, doc, docx, txt)，为空时按扩展名推断")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "加载 .env 失败: %v\n", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化失败")
	}
	defer func() {
		if err := app.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("关闭资源时出错")
		}
	}()

	job, err := loadJob(jobPath)
	if err != nil {
		log.Fatal().Err(err).Msg("读取岗位上下文失败")
	}
	refs, err := documentRefs(files, format)
	if err != nil {
		log.Fatal().Err(err).Msg("解析文件参数失败")
	}

	switch mode {
	case "serve":
		err = serve(ctx, app)
	case "extract":
		err = runExtract(ctx, app, refs)
	case "analyze":
		err = runAnalyze(ctx, app, refs, job)
	case "batch":
		err = runBatch(ctx, app, refs, job)
	case "seed-prompts":
		err = seedPrompts(ctx, app)
	default:
		err = fmt.Errorf("未知的运行模式: %s", mode)
	}
	if err != nil {
		log.Error().Err(err).Str("mode", mode).Msg("执行失败")
		stop()
		app.Close(ctx)
		os.Exit(1)
	}
}

func serve(ctx context.Context, app *application) error {
	log := logger.Component("server")
	h := router.NewServer(app.cfg.Server.Address, logger.Component("hertz"))
	resumeHandler := handler.NewResumeHandler(app.engine, app.orchestrator, app.runner, app.assessor, app.probe, logger.Component("api"))
	router.RegisterRoutes(h, resumeHandler, app.cfg.Server.APIKeys)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", app.cfg.Server.Address).Str("service", serviceName).Str("version", version).Msg("HTTP 服务启动")
		errCh <- h.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("接收到终止信号，正在优雅退出...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Shutdown(shutdownCtx)
}

func runExtract(ctx context.Context, app *application, refs []types.DocumentRef) error {
	if len(refs) == 0 {
		return errors.New("extract 模式需要 --file")
	}
	if len(refs) == 1 {
		result, err := app.engine.Extract(ctx, refs[0])
		if err != nil {
			return err
		}
		return printJSON(result)
	}
	results := app.engine.ExtractBatch(ctx, refs)
	return printJSON(map[string]any{
		"results": results,
		"summary": extraction.Summarize(results),
	})
}

func runAnalyze(ctx context.Context, app *application, refs []types.DocumentRef, job *types.JobContext) error {
	if len(refs) != 1 {
		return errors.New("analyze 模式需要且只需要一个 --file")
	}
	extracted, err := app.engine.Extract(ctx, refs[0])
	if err != nil {
		return err
	}
	result, err := app.orchestrator.Analyze(ctx, extracted, refs[0], job)
	if err != nil {
		return err
	}
	return printJSON(handler.AnalyzeResponse{Extraction: extracted, Analysis: result})
}

func runBatch(ctx context.Context, app *application, refs []types.DocumentRef, job *types.JobContext) error {
	if len(refs) == 0 {
		return errors.New("batch 模式需要至少一个 --file")
	}
	extracted := app.engine.ExtractBatch(ctx, refs)
	items := make(map[string]types.BatchItem, len(refs))
	for _, ref := range refs {
		items[ref.Key] = types.BatchItem{Extraction: extracted[ref.Key], Document: ref}
	}
	run := app.runner.Run(ctx, items, job)
	return printJSON(handler.BatchResponse{Run: run, ExtractionSummary: extraction.Summarize(extracted)})
}

func seedPrompts(ctx context.Context, app *application) error {
	if app.promptStore == nil {
		return errors.New("seed-prompts 需要启用 prompt.use_redis")
	}
	n, err := app.promptStore.SeedBuiltins(ctx)
	if err != nil {
		return err
	}
	logger.Component("prompt").Info().Int("templates", n).Msg("内置提示词已写入 Redis")
	return nil
}

// documentRefs 把命令行文件参数转为文档引用，键取文件路径（重复的路径加序号），
// 未指定格式时由扩展名推断
func documentRefs(files []string, format string) ([]types.DocumentRef, error) {
	refs := make([]types.DocumentRef, 0, len(files))
	used := make(map[string]bool, len(files))
	for _, path := range files {
		ref := types.DocumentRef{Key: batch.UniqueKey(used, path), Path: path, Filename: filepath.Base(path)}
		if format != "" {
			f, err := types.ParseFormat(format)
			if err != nil {
				return nil, err
			}
			ref.Format = f
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func loadJob(path string) (*types.JobContext, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job types.JobContext
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	for i := range job.Questions {
		job.Questions[i] = job.Questions[i].Normalize()
	}
	if err := types.ValidateStruct(job); err != nil {
		return nil, err
	}
	return &job, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
