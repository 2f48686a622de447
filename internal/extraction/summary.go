package extraction

import (
	"time"
	"unicode/utf8"

	"resume-analyzer/internal/types"
)

// Summarize 汇总批量提取结果，空输入返回零值统计
func Summarize(results map[string]types.ExtractionResult) types.ExtractionSummary {
	summary := types.ExtractionSummary{
		MethodsUsed: make(map[string]int),
		GeneratedAt: time.Now().UTC(),
	}
	if len(results) == 0 {
		return summary
	}

	var confidenceSum float64
	for _, r := range results {
		summary.TotalFiles++
		if r.Confidence > 0 {
			summary.Successful++
		}
		if r.NeedsFallback {
			summary.FallbackRecommended++
		}
		confidenceSum += r.Confidence
		summary.TotalTextLength += utf8.RuneCountInString(r.Text)
		summary.MethodsUsed[r.Method]++
	}

	total := float64(summary.TotalFiles)
	summary.SuccessRate = float64(summary.Successful) / total
	summary.FallbackRate = float64(summary.FallbackRecommended) / total
	summary.AverageConfidence = confidenceSum / total
	return summary
}
