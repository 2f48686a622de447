package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"pdf":   FormatPDF,
		".PDF":  FormatPDF,
		"docx":  FormatDOCX,
		" doc ": FormatDOC,
		"txt":   FormatText,
	}
	for tag, want := range cases {
		got, err := ParseFormat(tag)
		require.NoError(t, err, "标签 %q 应当被识别", tag)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("rtf")
	require.Error(t, err, "rtf 不在支持的格式中")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "应当可以用 errors.Is 识别")

	var ufe *UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "rtf", ufe.Format)
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("/tmp/简历.docx")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, f)

	_, err = FormatFromFilename("resume")
	assert.ErrorIs(t, err, ErrUnsupportedFormat, "没有扩展名时应返回格式错误")
}

func TestJobQuestionNormalizeAndValidate(t *testing.T) {
	q := JobQuestion{Question: "  Describe a Go project  "}.Normalize()
	assert.Equal(t, "Describe a Go project", q.Question)
	assert.Equal(t, DefaultQuestionWeight, q.Weight, "未指定权重时应默认为1.0")
	assert.NoError(t, q.Validate())

	empty := JobQuestion{Question: "   "}.Normalize()
	assert.ErrorIs(t, empty.Validate(), ErrInvalidJobQuestion, "空问题应校验失败")

	negative := JobQuestion{Question: "Why Go?", Weight: -2}.Normalize()
	assert.ErrorIs(t, negative.Validate(), ErrInvalidJobQuestion, "负权重应校验失败")
}

func TestErrorTaxonomy(t *testing.T) {
	nf := NewNotFoundError("/tmp/missing.pdf", "stat failed")
	assert.ErrorIs(t, nf, ErrDocumentNotFound)
	assert.Contains(t, nf.Error(), "/tmp/missing.pdf")

	_, err := ParseFormat("odt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "supported: pdf, doc, docx, txt", "错误信息应列出支持的格式")

	cause := errors.New("503 service unavailable")
	pe := NewProviderError("generate", 3, cause)
	assert.ErrorIs(t, pe, ErrProviderFailed)
	assert.ErrorIs(t, pe, cause, "ProviderError 应保留底层错误")

	wrapped := fmt.Errorf("analyze: %w", pe)
	var target *ProviderError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 3, target.Attempts)
}

func TestNormalizeEnums(t *testing.T) {
	assert.Equal(t, LevelSenior, NormalizeExperienceLevel("Senior"))
	assert.Equal(t, LevelEntry, NormalizeExperienceLevel("wizard"), "未知等级应归为entry")
	assert.Equal(t, QualityExcellent, NormalizeAnswerQuality("EXCELLENT"))
	assert.Equal(t, QualityFair, NormalizeAnswerQuality(""), "未知质量应归为fair")
}
