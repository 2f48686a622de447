package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"resume-analyzer/internal/batch"
	"resume-analyzer/internal/extraction"
	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/tracing"
	"resume-analyzer/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// maxUploadSize 单个上传文件的大小上限
const maxUploadSize = 20 << 20

// Extractor 文本提取
type Extractor interface {
	Extract(ctx context.Context, ref types.DocumentRef) (types.ExtractionResult, error)
	ExtractBatch(ctx context.Context, refs []types.DocumentRef) map[string]types.ExtractionResult
}

// Analyzer 单个文档分析
type Analyzer interface {
	Analyze(ctx context.Context, extraction types.ExtractionResult, ref types.DocumentRef, job *types.JobContext) (types.AnalysisResult, error)
}

// BatchRunner 批量分析
type BatchRunner interface {
	Run(ctx context.Context, items map[string]types.BatchItem, job *types.JobContext) types.BatchRun
}

// ReadinessAssessor 面试准备度评估
type ReadinessAssessor interface {
	Assess(ctx context.Context, analysis types.AnalysisResult, questions []types.JobQuestion) types.ReadinessAssessment
}

// HealthProbe 检查分析服务是否可用
type HealthProbe func(ctx context.Context) llm.ProbeResult

// ResumeHandler 把核心流程映射为 HTTP 接口
type ResumeHandler struct {
	extractor Extractor
	analyzer  Analyzer
	batch     BatchRunner
	readiness ReadinessAssessor
	probe     HealthProbe
	logger    zerolog.Logger
}

// NewResumeHandler 创建处理器，probe 可以为空
func NewResumeHandler(extractor Extractor, analyzer Analyzer, runner BatchRunner, readiness ReadinessAssessor, probe HealthProbe, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		extractor: extractor,
		analyzer:  analyzer,
		batch:     runner,
		readiness: readiness,
		probe:     probe,
		logger:    logger,
	}
}

// AnalyzeResponse 提取加分析的响应
type AnalyzeResponse struct {
	Extraction types.ExtractionResult `json:"extraction"`
	Analysis   types.AnalysisResult   `json:"analysis"`
}

// BatchResponse 批量分析的响应
type BatchResponse struct {
	Run               types.BatchRun          `json:"run"`
	ExtractionSummary types.ExtractionSummary `json:"extraction_summary"`
}

// ReadinessRequest 准备度评估请求
type ReadinessRequest struct {
	Analysis  types.AnalysisResult `json:"analysis"`
	Questions []types.JobQuestion  `json:"questions"`
}

// Extract POST /extract，表单字段 file，可选 format
func (h *ResumeHandler) Extract(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}
	ref, err := readUpload(fileHeader, ctx.PostForm("format"))
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}

	result, err := h.extractor.Extract(c, ref)
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, result)
}

// Analyze POST /analyze，表单字段 file，可选 format 和 job（JSON）
func (h *ResumeHandler) Analyze(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}
	job, err := parseJob(ctx.PostForm("job"))
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	ref, err := readUpload(fileHeader, ctx.PostForm("format"))
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}

	extracted, err := h.extractor.Extract(c, ref)
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	analysis, err := h.analyzer.Analyze(c, extracted, ref, job)
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, AnalyzeResponse{Extraction: extracted, Analysis: analysis})
}

// Batch POST /batch，表单字段 files 可重复，可选 job（JSON）
func (h *ResumeHandler) Batch(c context.Context, ctx *app.RequestContext) {
	form, err := ctx.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "没有上传文件"})
		return
	}
	job, err := parseJob(ctx.PostForm("job"))
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	refs := make([]types.DocumentRef, 0, len(form.File["files"]))
	used := make(map[string]bool, len(form.File["files"]))
	for _, fileHeader := range form.File["files"] {
		ref, err := readUpload(fileHeader, "")
		if err != nil {
			h.writeError(c, ctx, err)
			return
		}
		// 同名文件加序号区分
		ref.Key = batch.UniqueKey(used, ref.Filename)
		refs = append(refs, ref)
	}

	extracted := h.extractor.ExtractBatch(c, refs)
	items := make(map[string]types.BatchItem, len(refs))
	for _, ref := range refs {
		items[ref.Key] = types.BatchItem{Extraction: extracted[ref.Key], Document: ref}
	}

	run := h.batch.Run(c, items, job)
	ctx.JSON(consts.StatusOK, BatchResponse{Run: run, ExtractionSummary: extraction.Summarize(extracted)})
}

// Readiness POST /readiness，JSON 请求体
func (h *ResumeHandler) Readiness(c context.Context, ctx *app.RequestContext) {
	var req ReadinessRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是有效的JSON"})
		return
	}
	if len(req.Questions) == 0 {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "questions 不能为空"})
		return
	}
	ctx.JSON(consts.StatusOK, h.readiness.Assess(c, req.Analysis, req.Questions))
}

// Health GET /health
func (h *ResumeHandler) Health(c context.Context, ctx *app.RequestContext) {
	if h.probe == nil {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
		return
	}
	result := h.probe(c)
	status := consts.StatusOK
	if !result.Available {
		status = consts.StatusServiceUnavailable
	}
	ctx.JSON(status, utils.H{"status": "ok", "provider": result})
}

// writeError 按错误类型选择状态码，并记录到当前请求的 span
func (h *ResumeHandler) writeError(c context.Context, ctx *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrUnsupportedFormat):
		status = consts.StatusBadRequest
	case errors.Is(err, types.ErrDocumentNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, types.ErrProviderFailed):
		status = consts.StatusBadGateway
	case errors.Is(err, errUploadTooLarge):
		status = consts.StatusRequestEntityTooLarge
	}
	tracing.RecordHTTPError(trace.SpanFromContext(c), err, status)
	h.logger.Error().Err(err).Int("status", status).Str("path", string(ctx.Path())).Msg("请求处理失败")
	ctx.JSON(status, utils.H{"error": err.Error()})
}

var errUploadTooLarge = errors.New("上传文件过大")

// readUpload 读取上传文件，声明的格式优先于扩展名
func readUpload(fileHeader *multipart.FileHeader, format string) (types.DocumentRef, error) {
	if fileHeader.Size > maxUploadSize {
		return types.DocumentRef{}, fmt.Errorf("%w: %s", errUploadTooLarge, fileHeader.Filename)
	}

	var (
		f   types.Format
		err error
	)
	if format != "" {
		f, err = types.ParseFormat(format)
	} else {
		f, err = types.FormatFromFilename(fileHeader.Filename)
	}
	if err != nil {
		return types.DocumentRef{}, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return types.DocumentRef{}, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return types.DocumentRef{}, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	return types.DocumentRef{
		Key:      fileHeader.Filename,
		Data:     data,
		Format:   f,
		Filename: fileHeader.Filename,
	}, nil
}

// parseJob 解析并校验岗位上下文，空串返回 nil
func parseJob(raw string) (*types.JobContext, error) {
	if raw == "" {
		return nil, nil
	}
	var job types.JobContext
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("job 不是有效的JSON: %w", err)
	}
	for i := range job.Questions {
		job.Questions[i] = job.Questions[i].Normalize()
	}
	if err := types.ValidateStruct(job); err != nil {
		return nil, fmt.Errorf("job 校验失败: %w", err)
	}
	return &job, nil
}
