package extraction

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/parser"
	"resume-analyzer/internal/source"
	"resume-analyzer/internal/tracing"
	"resume-analyzer/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultQualityThreshold 低于该置信度建议走视觉分析
	DefaultQualityThreshold = 0.7

	// MethodBatchFailed 批量提取中单个文档出错时的方法名
	MethodBatchFailed = "batch_extraction_failed"
	// MethodUnavailable 该格式没有可用的提取策略
	MethodUnavailable = "extraction_unavailable"

	batchConcurrency = 3
)

var tracer = tracing.Tracer("extraction")

// DocumentLoader 把文档引用解析为字节和格式
type DocumentLoader interface {
	Load(ctx context.Context, ref types.DocumentRef) ([]byte, types.Format, error)
}

// chain 单个格式的有序策略链
type chain struct {
	strategies []parser.Strategy
}

// Engine 按格式调度提取策略，清洗、评分后返回最优结果
type Engine struct {
	threshold float64
	chains    map[types.Format]chain
	loader    DocumentLoader
	logger    zerolog.Logger
}

// EngineOption 引擎配置选项
type EngineOption func(*Engine)

// WithStrategies 替换某个格式的策略链，按顺序执行
func WithStrategies(format types.Format, strategies ...parser.Strategy) EngineOption {
	return func(e *Engine) {
		e.chains[format] = chain{strategies: strategies}
	}
}

// WithLogger 配置日志记录器
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithThreshold 覆盖质量阈值
func WithThreshold(threshold float64) EngineOption {
	return func(e *Engine) {
		if threshold > 0 && threshold <= 1 {
			e.threshold = threshold
		}
	}
}

// NewEngine 根据配置组装默认策略：PDF 先逐页提取再用 Tika 版面解析，
// docx 直接解析，doc 依赖 Tika，纯文本按编码回退解码
func NewEngine(ctx context.Context, cfg config.ExtractionConfig, loader DocumentLoader, options ...EngineOption) (*Engine, error) {
	if loader == nil {
		loader = source.NewResolver(nil)
	}
	e := &Engine{
		threshold: DefaultQualityThreshold,
		chains:    make(map[types.Format]chain),
		loader:    loader,
		logger:    zerolog.Nop(),
	}
	if cfg.QualityThreshold > 0 && cfg.QualityThreshold <= 1 {
		e.threshold = cfg.QualityThreshold
	}
	for _, option := range options {
		option(e)
	}

	if _, ok := e.chains[types.FormatPDF]; !ok {
		pdfOptions := []parser.EinoPDFOption{parser.WithEinoLogger(e.logger)}
		if cfg.PDFTimeout > 0 {
			pdfOptions = append(pdfOptions, parser.WithEinoTimeout(time.Duration(cfg.PDFTimeout)*time.Second))
		}
		pages, err := parser.NewEinoPDFTextExtractor(ctx, pdfOptions...)
		if err != nil {
			return nil, err
		}
		pdfChain := []parser.Strategy{pages}
		if cfg.Tika.Enabled {
			layout, err := parser.NewTikaExtractor(cfg.Tika.ServerURL, types.FormatPDF, tikaOptions(cfg.Tika, e.logger)...)
			if err != nil {
				return nil, err
			}
			pdfChain = append(pdfChain, layout)
		}
		e.chains[types.FormatPDF] = chain{strategies: pdfChain}
	}
	if _, ok := e.chains[types.FormatDOC]; !ok && cfg.Tika.Enabled {
		doc, err := parser.NewTikaExtractor(cfg.Tika.ServerURL, types.FormatDOC, tikaOptions(cfg.Tika, e.logger)...)
		if err != nil {
			return nil, err
		}
		e.chains[types.FormatDOC] = chain{strategies: []parser.Strategy{doc}}
	}
	if _, ok := e.chains[types.FormatDOCX]; !ok {
		e.chains[types.FormatDOCX] = chain{strategies: []parser.Strategy{parser.NewDOCXExtractor()}}
	}
	if _, ok := e.chains[types.FormatText]; !ok {
		e.chains[types.FormatText] = chain{strategies: []parser.Strategy{parser.NewPlainTextExtractor()}}
	}
	return e, nil
}

func tikaOptions(cfg config.TikaConfig, logger zerolog.Logger) []parser.TikaOption {
	return []parser.TikaOption{
		parser.WithTikaLogger(logger),
		parser.WithTimeout(time.Duration(cfg.Timeout) * time.Second),
	}
}

// Threshold 返回当前质量阈值
func (e *Engine) Threshold() float64 { return e.threshold }

// Extract 提取单个文档。只有引用无法解析或格式不支持时返回错误，
// 策略失败记为零置信度结果
func (e *Engine) Extract(ctx context.Context, ref types.DocumentRef) (types.ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "Extraction.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("document.uri", tracing.SafeAttributeValue("document.uri", ref.URI(), tracing.DefaultMaxLength)))

	data, format, err := e.loader.Load(ctx, ref)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return types.ExtractionResult{}, err
	}
	span.SetAttributes(attribute.String("document.format", string(format)), attribute.Int("document.size", len(data)))

	c, ok := e.chains[format]
	if !ok || len(c.strategies) == 0 {
		e.logger.Warn().Str("format", string(format)).Str("uri", ref.URI()).Msg("没有可用的提取策略，建议视觉分析")
		return types.ExtractionResult{
			Method:        MethodUnavailable,
			Metadata:      map[string]any{"error": fmt.Sprintf("no extraction strategy available for %s", format)},
			NeedsFallback: true,
			CreatedAt:     time.Now(),
		}, nil
	}

	result := e.runChain(ctx, c, data, ref.URI())
	span.SetAttributes(
		attribute.String("extraction.method", result.Method),
		attribute.Float64("extraction.confidence", result.Confidence),
		attribute.Bool("extraction.needs_fallback", result.NeedsFallback),
	)
	e.logger.Info().
		Str("uri", ref.URI()).
		Str("method", result.Method).
		Float64("confidence", result.Confidence).
		Bool("needs_fallback", result.NeedsFallback).
		Msg("文本提取完成")
	return result, nil
}

// runChain 依次执行策略：首个结果超过阈值即返回，否则保留置信度严格更高者
func (e *Engine) runChain(ctx context.Context, c chain, data []byte, uri string) types.ExtractionResult {
	var best types.ExtractionResult
	failures := 0

	for i, strategy := range c.strategies {
		result := e.runStrategy(ctx, strategy, data, uri)
		if _, failed := result.Metadata["error"]; failed {
			failures++
		}
		if i == 0 {
			best = result
			if best.Confidence > e.threshold {
				return best
			}
			continue
		}
		if result.Confidence > best.Confidence {
			best = result
		}
	}

	switch {
	case failures == len(c.strategies):
		best.NeedsFallback = true
	case best.Confidence < e.threshold:
		best.NeedsFallback = true
		e.logger.Info().Float64("confidence", best.Confidence).Str("uri", uri).Msg("文本提取置信度偏低，建议视觉分析")
	}
	return best
}

func (e *Engine) runStrategy(ctx context.Context, strategy parser.Strategy, data []byte, uri string) types.ExtractionResult {
	raw, err := strategy.Extract(ctx, data, uri)
	if err != nil {
		e.logger.Error().Err(err).Str("method", strategy.Name()).Str("uri", uri).Msg("提取策略失败")
		return types.ExtractionResult{
			Method:    strategy.Name(),
			Metadata:  map[string]any{"error": err.Error()},
			CreatedAt: time.Now(),
		}
	}
	return finish(raw)
}

// finish 清洗并评分，补齐长度和成功率元数据
func finish(raw *parser.Raw) types.ExtractionResult {
	cleaned := Clean(raw.Text)

	meta := make(map[string]any, len(raw.Meta)+4)
	for k, v := range raw.Meta {
		meta[k] = v
	}
	meta["raw_text_length"] = utf8.RuneCountInString(raw.Text)
	meta["cleaned_text_length"] = utf8.RuneCountInString(cleaned)
	if total, ok := meta["total_pages"].(int); ok {
		rate := 0.0
		if processed, ok := meta["pages_processed"].(int); ok && total > 0 {
			rate = float64(processed) / float64(total)
		}
		meta["extraction_success_rate"] = rate
	}
	if raw.Encoding != "" {
		meta["encoding"] = raw.Encoding
	}

	return types.ExtractionResult{
		Text:       cleaned,
		Method:     raw.Method,
		Confidence: Score(cleaned),
		Metadata:   meta,
		CreatedAt:  time.Now(),
	}
}

// ExtractBatch 批量提取，单个文档的任何错误都转为失败结果，不影响其他文档
func (e *Engine) ExtractBatch(ctx context.Context, refs []types.DocumentRef) map[string]types.ExtractionResult {
	results := make(map[string]types.ExtractionResult, len(refs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, ref := range refs {
		ref := ref
		key := ref.Key
		if key == "" {
			key = ref.URI()
		}
		g.Go(func() error {
			result, err := e.Extract(gctx, ref)
			if err != nil {
				e.logger.Error().Err(err).Str("key", key).Msg("批量提取失败")
				result = types.ExtractionResult{
					Method:        MethodBatchFailed,
					Metadata:      map[string]any{"error": err.Error()},
					NeedsFallback: true,
					CreatedAt:     time.Now(),
				}
			}
			mu.Lock()
			results[key] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
