package types

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Format 文档格式标签，封闭集合
type Format string

const (
	// FormatPDF 便携文档格式
	FormatPDF Format = "pdf"
	// FormatDOC 旧版 Word 二进制文档
	FormatDOC Format = "doc"
	// FormatDOCX 新版 Word (OOXML) 文档
	FormatDOCX Format = "docx"
	// FormatText 纯文本
	FormatText Format = "txt"
)

// SupportedFormats 返回支持的全部格式
func SupportedFormats() []Format {
	return []Format{FormatPDF, FormatDOC, FormatDOCX, FormatText}
}

// ParseFormat 将格式标签解析为 Format，未知标签返回 UnsupportedFormatError
func ParseFormat(tag string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), ".")))
	if slices.Contains(SupportedFormats(), f) {
		return f, nil
	}
	return "", NewUnsupportedFormatError(tag)
}

// FormatFromFilename 根据文件扩展名推断格式
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(filepath.Ext(name))
}

// MIMEType 返回格式对应的 MIME 类型
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOC:
		return "application/msword"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatText:
		return "text/plain"
	}
	return "application/octet-stream"
}

// DocumentRef 文档引用：本地路径、内存字节或对象存储路径，加上声明的格式
type DocumentRef struct {
	Key      string // 批处理中的文档键
	Path     string // 本地路径或 minio://bucket/object
	Data     []byte // 内联内容，优先于 Path
	Format   Format
	Filename string // 原始文件名，仅用于日志和 URI
}

// URI 返回用于日志和解析器元数据的标识
func (d DocumentRef) URI() string {
	switch {
	case d.Path != "":
		return d.Path
	case d.Filename != "":
		return d.Filename
	case d.Key != "":
		return d.Key
	}
	return "inline"
}

// ExtractionResult 一次文本提取的结果，返回后不再修改
type ExtractionResult struct {
	Text          string         `json:"text"`
	Method        string         `json:"method"`
	Confidence    float64        `json:"confidence"`
	Metadata      map[string]any `json:"metadata"`
	NeedsFallback bool           `json:"needs_fallback"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ExtractionSummary 批量提取的统计信息
type ExtractionSummary struct {
	TotalFiles          int            `json:"total_files"`
	Successful          int            `json:"successful_extractions"`
	SuccessRate         float64        `json:"success_rate"`
	FallbackRecommended int            `json:"fallback_recommended"`
	FallbackRate        float64        `json:"fallback_recommendation_rate"`
	AverageConfidence   float64        `json:"average_confidence"`
	TotalTextLength     int            `json:"total_text_extracted"`
	MethodsUsed         map[string]int `json:"methods_used"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// ExperienceLevel 经验等级
type ExperienceLevel string

const (
	LevelEntry     ExperienceLevel = "entry"
	LevelJunior    ExperienceLevel = "junior"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelLead      ExperienceLevel = "lead"
	LevelExecutive ExperienceLevel = "executive"
)

// NormalizeExperienceLevel 未知取值归为 entry
func NormalizeExperienceLevel(s string) ExperienceLevel {
	switch l := ExperienceLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelEntry, LevelJunior, LevelMid, LevelSenior, LevelLead, LevelExecutive:
		return l
	}
	return LevelEntry
}

// ProcessingMethod 分析路径
type ProcessingMethod string

const (
	MethodTextAnalysis   ProcessingMethod = "text-analysis"
	MethodVisionAnalysis ProcessingMethod = "vision-analysis"
	MethodFailedParse    ProcessingMethod = "failed-parse"
)

// Education 教育背景
type Education struct {
	Degree         string  `json:"degree" mapstructure:"degree"`
	University     string  `json:"university" mapstructure:"university"`
	GraduationYear int     `json:"graduation_year" mapstructure:"graduation_year"`
	GPA            float64 `json:"gpa" mapstructure:"gpa"`
}

// Role 一段工作经历
type Role struct {
	Title         string   `json:"title" mapstructure:"title"`
	Company       string   `json:"company" mapstructure:"company"`
	DurationYears float64  `json:"duration_years" mapstructure:"duration_years"`
	Technologies  []string `json:"technologies" mapstructure:"technologies"`
}

// AnalysisResult 结构化的简历分析结果，所有字段始终存在
type AnalysisResult struct {
	OverallScore         float64              `json:"overall_score" mapstructure:"overall_score"`
	Skills               []string             `json:"skills_extracted" mapstructure:"skills_extracted"`
	ExperienceYears      int                  `json:"experience_years" mapstructure:"experience_years"`
	ExperienceLevel      ExperienceLevel      `json:"experience_level" mapstructure:"experience_level"`
	Education            Education            `json:"education" mapstructure:"education"`
	PreviousRoles        []Role               `json:"previous_roles" mapstructure:"previous_roles"`
	Achievements         []string             `json:"key_achievements" mapstructure:"key_achievements"`
	Summary              string               `json:"analysis_summary" mapstructure:"analysis_summary"`
	Strengths            []string             `json:"strengths" mapstructure:"strengths"`
	ImprovementAreas     []string             `json:"areas_for_improvement" mapstructure:"areas_for_improvement"`
	Confidence           float64              `json:"confidence_score" mapstructure:"confidence_score"`
	ContactInfo          map[string]string    `json:"contact_info" mapstructure:"contact_info"`
	JobMatchScore        *float64             `json:"job_match_score,omitempty" mapstructure:"job_match_score"`
	JobSpecificStrengths []string             `json:"job_specific_strengths" mapstructure:"job_specific_strengths"`
	JobSpecificGaps      []string             `json:"job_specific_gaps" mapstructure:"job_specific_gaps"`
	Readiness            *ReadinessAssessment `json:"readiness,omitempty" mapstructure:"-"`
	ProcessingMethod     ProcessingMethod     `json:"processing_method" mapstructure:"-"`
	ParsingError         string               `json:"parsing_error,omitempty" mapstructure:"-"`
	CreatedAt            time.Time            `json:"created_at" mapstructure:"-"`
}

// Failed 是否为降级结果
func (a AnalysisResult) Failed() bool {
	return a.ProcessingMethod == MethodFailedParse
}

// JobContext 岗位上下文
type JobContext struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Requirements    []string      `json:"requirements"`
	ExperienceLevel string        `json:"experience_level"`
	Location        string        `json:"location"`
	JobType         string        `json:"job_type"`
	Questions       []JobQuestion `json:"questions,omitempty" validate:"dive"`
}

// JobQuestion 带权重的面试问题
type JobQuestion struct {
	Question    string  `json:"question" validate:"required"`
	IdealAnswer string  `json:"ideal_answer"`
	Weight      float64 `json:"weight" validate:"gt=0"`
}

// DefaultQuestionWeight 未指定权重时的默认值
const DefaultQuestionWeight = 1.0

// Normalize 去除首尾空白并补齐默认权重
func (q JobQuestion) Normalize() JobQuestion {
	q.Question = strings.TrimSpace(q.Question)
	if q.Weight == 0 {
		q.Weight = DefaultQuestionWeight
	}
	return q
}

// AnswerQuality 预测的回答质量
type AnswerQuality string

const (
	QualityPoor      AnswerQuality = "poor"
	QualityFair      AnswerQuality = "fair"
	QualityGood      AnswerQuality = "good"
	QualityExcellent AnswerQuality = "excellent"
)

// NormalizeAnswerQuality 未知取值归为 fair
func NormalizeAnswerQuality(s string) AnswerQuality {
	switch q := AnswerQuality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualityPoor, QualityFair, QualityGood, QualityExcellent:
		return q
	}
	return QualityFair
}

// QuestionAssessment 单个问题的准备度评估
type QuestionAssessment struct {
	Question         string        `json:"question" mapstructure:"question"`
	ReadinessScore   float64       `json:"readiness_score" mapstructure:"readiness_score"`
	PredictedQuality AnswerQuality `json:"predicted_answer_quality" mapstructure:"predicted_answer_quality"`
	Reasoning        string        `json:"reasoning" mapstructure:"reasoning"`
	Suggestions      []string      `json:"preparation_suggestions" mapstructure:"preparation_suggestions"`
}

// ReadinessAssessment 面试准备度评估，交还调用方，不做持久化
type ReadinessAssessment struct {
	AggregateScore    float64              `json:"qa_readiness_score" mapstructure:"qa_readiness_score"`
	PerQuestion       []QuestionAssessment `json:"question_assessments" mapstructure:"question_assessments"`
	Recommendations   []string             `json:"interview_recommendations" mapstructure:"interview_recommendations"`
	OverallAssessment string               `json:"overall_assessment" mapstructure:"overall_assessment"`
	ParsingError      string               `json:"parsing_error,omitempty" mapstructure:"-"`
}

// BatchItem 批处理输入项
type BatchItem struct {
	Extraction ExtractionResult
	Document   DocumentRef
}

// BatchRun 批处理结果，每个提交的键都有且只有一个条目
type BatchRun struct {
	ID         string                    `json:"id"`
	Results    map[string]AnalysisResult `json:"results"`
	Attempted  int                       `json:"attempted"`
	Succeeded  int                       `json:"succeeded"`
	Failed     int                       `json:"failed"`
	Elapsed    time.Duration             `json:"elapsed"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}
