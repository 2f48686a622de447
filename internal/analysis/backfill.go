package analysis

import (
	"sort"
	"time"

	"resume-analyzer/internal/types"

	"github.com/mitchellh/mapstructure"
)

const (
	defaultOverallScore = 50.0
	defaultConfidence   = 0.5
	defaultSummary      = "Resume analysis completed"

	degradedScore      = 25.0
	degradedConfidence = 0.1
	degradedSummary    = "Analysis parsing failed - manual review required"
)

// jobOnlyKeys 没有职位描述时这些字段没有意义，解析结果中出现也忽略
var jobOnlyKeys = map[string]bool{
	"job_match_score":        true,
	"job_specific_strengths": true,
	"job_specific_gaps":      true,
}

// defaultRecord 每个字段的中性默认值，解析结果按键覆盖
func defaultRecord(withJob bool) map[string]any {
	record := map[string]any{
		"overall_score":    defaultOverallScore,
		"skills_extracted": []string{},
		"experience_years": 0,
		"experience_level": string(types.LevelEntry),
		"education": map[string]any{
			"degree":          "",
			"university":      "",
			"graduation_year": 0,
			"gpa":             0.0,
		},
		"previous_roles":         []map[string]any{},
		"key_achievements":       []string{},
		"analysis_summary":       defaultSummary,
		"strengths":              []string{},
		"areas_for_improvement":  []string{},
		"confidence_score":       defaultConfidence,
		"contact_info":           map[string]string{},
		"job_specific_strengths": []string{},
		"job_specific_gaps":      []string{},
	}
	if withJob {
		record["job_match_score"] = 0.0
	}
	return record
}

// BackfillResult 把模型返回的对象合并到默认记录上，返回字段齐全的分析结果。
// 单个字段类型不符时保留该字段的默认值，返回的 skipped 列出这些字段
func BackfillResult(parsed map[string]any, withJob bool) (types.AnalysisResult, []string) {
	defaults := defaultRecord(withJob)

	var result types.AnalysisResult
	_ = decodeInto(&result, defaults) // 默认记录与结构体标签一一对应

	keys := make([]string, 0, len(parsed))
	for key := range parsed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var skipped []string
	for _, key := range keys {
		value := parsed[key]
		if value == nil {
			continue
		}
		if _, known := defaults[key]; !known {
			continue
		}
		if !withJob && jobOnlyKeys[key] {
			continue
		}
		if err := decodeInto(&result, map[string]any{key: value}); err != nil {
			skipped = append(skipped, key)
			_ = decodeInto(&result, map[string]any{key: defaults[key]})
		}
	}

	normalize(&result, withJob)
	return result, skipped
}

func decodeInto(result *types.AnalysisResult, input map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// normalize 数值截断到合法范围，集合保证非 nil
func normalize(r *types.AnalysisResult, withJob bool) {
	r.OverallScore = clamp(r.OverallScore, 0, 100)
	r.Confidence = clamp(r.Confidence, 0, 1)
	if r.ExperienceYears < 0 {
		r.ExperienceYears = 0
	}
	r.ExperienceLevel = types.NormalizeExperienceLevel(string(r.ExperienceLevel))

	r.Skills = nonNil(r.Skills)
	r.Achievements = nonNil(r.Achievements)
	r.Strengths = nonNil(r.Strengths)
	r.ImprovementAreas = nonNil(r.ImprovementAreas)
	r.JobSpecificStrengths = nonNil(r.JobSpecificStrengths)
	r.JobSpecificGaps = nonNil(r.JobSpecificGaps)
	if r.ContactInfo == nil {
		r.ContactInfo = map[string]string{}
	}
	if r.PreviousRoles == nil {
		r.PreviousRoles = []types.Role{}
	}
	for i := range r.PreviousRoles {
		r.PreviousRoles[i].Technologies = nonNil(r.PreviousRoles[i].Technologies)
		if r.PreviousRoles[i].DurationYears < 0 {
			r.PreviousRoles[i].DurationYears = 0
		}
	}

	if withJob {
		score := 0.0
		if r.JobMatchScore != nil {
			score = clamp(*r.JobMatchScore, 0, 100)
		}
		r.JobMatchScore = &score
	} else {
		r.JobMatchScore = nil
	}
}

// DegradedResult 模型输出无法解析时的降级结果
func DegradedResult(parseErr error, withJob bool) types.AnalysisResult {
	result, _ := BackfillResult(nil, withJob)
	result.OverallScore = degradedScore
	result.Confidence = degradedConfidence
	result.Summary = degradedSummary
	result.ImprovementAreas = []string{"needs manual review"}
	result.ProcessingMethod = types.MethodFailedParse
	result.ParsingError = "JSON parsing failed: " + errorText(parseErr)
	result.CreatedAt = time.Now()
	return result
}

// FailedResult 分析调用本身失败时的结果，批处理中用于隔离单个文档的错误
func FailedResult(err error, withJob bool) types.AnalysisResult {
	result, _ := BackfillResult(nil, withJob)
	result.OverallScore = 0
	result.Summary = "Analysis failed: " + errorText(err)
	result.ImprovementAreas = []string{"Manual review required"}
	result.ProcessingMethod = types.MethodFailedParse
	result.ParsingError = errorText(err)
	result.CreatedAt = time.Now()
	return result
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
