// Package readiness 根据简历分析结果评估候选人回答面试问题的准备度
package readiness

import (
	"context"
	"sort"
	"strconv"

	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/prompt"
	"resume-analyzer/internal/tracing"
	"resume-analyzer/internal/types"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	topSkills       = 10
	recentRoles     = 3
	topAchievements = 3

	defaultOverall = "Assessment completed"
)

var tracer = tracing.Tracer("readiness")

// Invoker 带重试的模型调用
type Invoker interface {
	Invoke(ctx context.Context, req llm.Request) (string, error)
}

// Assessor 面试问题准备度评估器
type Assessor struct {
	prompts prompt.Provider
	invoker Invoker
	model   string
	logger  zerolog.Logger
}

// Option 评估器配置选项
type Option func(*Assessor)

// WithLogger 配置日志记录器
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Assessor) {
		a.logger = logger
	}
}

// NewAssessor 创建评估器，model 为空时使用 provider 的默认模型
func NewAssessor(prompts prompt.Provider, invoker Invoker, model string, options ...Option) *Assessor {
	a := &Assessor{prompts: prompts, invoker: invoker, model: model, logger: zerolog.Nop()}
	for _, option := range options {
		option(a)
	}
	return a
}

// Assess 调用一次模型评估全部问题。任何失败都返回结构完整的降级结果
func (a *Assessor) Assess(ctx context.Context, analysis types.AnalysisResult, questions []types.JobQuestion) types.ReadinessAssessment {
	ctx, span := tracer.Start(ctx, "Assessor.Assess")
	defer span.End()

	valid := a.validQuestions(questions)
	span.SetAttributes(
		attribute.Int("readiness.questions", len(questions)),
		attribute.Int("readiness.valid_questions", len(valid)),
	)

	rendered, err := a.prompts.Render(ctx, prompt.PurposeQAAssessment, profileVars(analysis, valid))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		a.logger.Error().Err(err).Msg("构建准备度评估提示词失败")
		return failedAssessment()
	}

	raw, err := a.invoker.Invoke(ctx, llm.Request{
		Purpose: string(prompt.PurposeQAAssessment),
		Model:   a.model,
		Prompt:  rendered,
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeProvider)
		a.logger.Error().Err(err).Msg("准备度评估调用失败")
		return failedAssessment()
	}

	parsed, err := llm.DecodeObject(raw)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		a.logger.Warn().Err(err).Str("response", tracing.TruncateString(raw, tracing.DefaultMaxLength)).Msg("准备度评估结果无法解析")
		return parseFailedAssessment(err)
	}

	assessment := backfill(parsed, a.logger)
	span.SetAttributes(attribute.Float64("readiness.score", assessment.AggregateScore))
	return assessment
}

// validQuestions 补齐默认权重，丢弃不合法的问题
func (a *Assessor) validQuestions(questions []types.JobQuestion) []types.JobQuestion {
	valid := make([]types.JobQuestion, 0, len(questions))
	for i, q := range questions {
		q = q.Normalize()
		if err := q.Validate(); err != nil {
			a.logger.Warn().Err(err).Int("index", i).Msg("忽略无效的面试问题")
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

// profileVars 候选人概况和问题列表，作为提示词变量
func profileVars(analysis types.AnalysisResult, questions []types.JobQuestion) map[string]string {
	titles := make([]string, 0, recentRoles)
	for i, role := range analysis.PreviousRoles {
		if i == recentRoles {
			break
		}
		titles = append(titles, role.Title)
	}
	return map[string]string{
		"experience_years": strconv.Itoa(analysis.ExperienceYears),
		"experience_level": string(analysis.ExperienceLevel),
		"skills":           prompt.JoinFirst(analysis.Skills, topSkills),
		"previous_roles":   prompt.JoinFirst(titles, recentRoles),
		"achievements":     prompt.JoinFirst(analysis.Achievements, topAchievements),
		"overall_score":    prompt.FormatFloat(analysis.OverallScore),
		"questions":        prompt.FormatQuestions(questions),
	}
}

func backfill(parsed map[string]any, logger zerolog.Logger) types.ReadinessAssessment {
	assessment := types.ReadinessAssessment{OverallAssessment: defaultOverall}

	keys := make([]string, 0, len(parsed))
	for key := range parsed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := parsed[key]
		if value == nil {
			continue
		}
		var scratch types.ReadinessAssessment
		if err := mapstructure.WeakDecode(map[string]any{key: value}, &scratch); err != nil {
			logger.Warn().Err(err).Str("field", key).Msg("准备度评估字段类型不符，使用默认值")
			continue
		}
		switch key {
		case "qa_readiness_score":
			assessment.AggregateScore = scratch.AggregateScore
		case "question_assessments":
			assessment.PerQuestion = scratch.PerQuestion
		case "interview_recommendations":
			assessment.Recommendations = scratch.Recommendations
		case "overall_assessment":
			assessment.OverallAssessment = scratch.OverallAssessment
		}
	}

	assessment.AggregateScore = clampScore(assessment.AggregateScore)
	if assessment.PerQuestion == nil {
		assessment.PerQuestion = []types.QuestionAssessment{}
	}
	for i := range assessment.PerQuestion {
		q := &assessment.PerQuestion[i]
		q.ReadinessScore = clampScore(q.ReadinessScore)
		q.PredictedQuality = types.NormalizeAnswerQuality(string(q.PredictedQuality))
		if q.Suggestions == nil {
			q.Suggestions = []string{}
		}
	}
	if assessment.Recommendations == nil {
		assessment.Recommendations = []string{}
	}
	return assessment
}

func failedAssessment() types.ReadinessAssessment {
	return types.ReadinessAssessment{
		PerQuestion:       []types.QuestionAssessment{},
		Recommendations:   []string{"Manual assessment required due to error"},
		OverallAssessment: "Assessment failed",
	}
}

func parseFailedAssessment(err error) types.ReadinessAssessment {
	return types.ReadinessAssessment{
		PerQuestion:       []types.QuestionAssessment{},
		Recommendations:   []string{"Manual assessment required due to parsing error"},
		OverallAssessment: "Assessment parsing failed",
		ParsingError:      err.Error(),
	}
}

func clampScore(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
