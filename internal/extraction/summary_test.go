package extraction

import (
	"testing"

	"resume-analyzer/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	results := map[string]types.ExtractionResult{
		"a": {Text: "hello", Method: "plain_text", Confidence: 0.8},
		"b": {Text: "简历", Method: "direct_pdf_pages", Confidence: 0.4, NeedsFallback: true},
		"c": {Method: MethodBatchFailed, Confidence: 0, NeedsFallback: true},
		"d": {Text: "x", Method: "plain_text", Confidence: 0.6},
	}

	summary := Summarize(results)
	assert.Equal(t, 4, summary.TotalFiles)
	assert.Equal(t, 3, summary.Successful)
	assert.InDelta(t, 0.75, summary.SuccessRate, 1e-9)
	assert.Equal(t, 2, summary.FallbackRecommended)
	assert.InDelta(t, 0.5, summary.FallbackRate, 1e-9)
	assert.InDelta(t, 0.45, summary.AverageConfidence, 1e-9)
	assert.Equal(t, 8, summary.TotalTextLength, "按字符而非字节统计")
	assert.Equal(t, map[string]int{"plain_text": 2, "direct_pdf_pages": 1, MethodBatchFailed: 1}, summary.MethodsUsed)
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.TotalFiles)
	assert.Equal(t, 0.0, summary.SuccessRate, "空输入不应除零")
	assert.NotNil(t, summary.MethodsUsed)
}
