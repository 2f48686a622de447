package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		score float64
	}{
		{name: "纯 JSON", raw: `{"overall_score": 80}`, score: 80},
		{name: "json 代码块", raw: "```json\n{\"overall_score\": 81}\n```", score: 81},
		{name: "无语言代码块", raw: "```\n{\"overall_score\": 82}\n```", score: 82},
		{name: "BOM", raw: "\uFEFF{\"overall_score\": 83}", score: 83},
		{name: "字符串内含括号", raw: `{"overall_score": 84, "note": "a } inside"}`, score: 84},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := DecodeObject(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.score, obj["overall_score"])
		})
	}
}

func TestDecodeObjectFailures(t *testing.T) {
	for name, raw := range map[string]string{
		"空":      "   ",
		"非 JSON": "I could not analyze this resume.",
		"数组":     `[1, 2, 3]`,
		"截断":     `{"overall_score": 80, "skills_extracted": ["Go"`,
		"null":    "null",
		"前后有说明文字": "Here is the analysis:\n{\"overall_score\": 84}\nThanks!",
		"后缀说明":    "{\"overall_score\": 84}\nLet me know if you need more.",
		"代码块外有说明": "Sure!\n```json\n{\"overall_score\": 84}\n```",
		"未转义引号":   `{"overall_score": 85, "analysis_summary": "He said "hello" twice"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeObject(raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("  ```json\n{\"a\":1}\n```  "))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`{"a":1}`))
}
