package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var fillerWords = strings.Fields("designed and operated backend services for payments and logistics teams across three regions")

// fillerText 生成不含简历关键字的文本
func fillerText(words int) string {
	out := make([]string, words)
	for i := range out {
		out[i] = fillerWords[i%len(fillerWords)]
	}
	return strings.Join(out, " ")
}

// resumeFixture 生成带 Experience/Education/Skills 标题和邮箱的简历文本
func resumeFixture(words int) string {
	var sb strings.Builder
	sb.WriteString("Jane Doe\nEmail: jane.doe@example.com\n\nExperience\n")
	for i := 0; i < words; i++ {
		switch i {
		case words / 3:
			sb.WriteString("\n\nEducation\n")
		case 2 * words / 3:
			sb.WriteString("\n\nSkills\n")
		}
		sb.WriteString(fillerWords[i%len(fillerWords)])
		if (i+1)%12 == 0 {
			sb.WriteString("\n")
		} else {
			sb.WriteString(" ")
		}
	}
	return Clean(sb.String())
}

func TestScoreShortText(t *testing.T) {
	assert.Equal(t, 0.0, Score(""))
	assert.Equal(t, 0.0, Score(strings.Repeat("x", 99)), "少于100个字符应为0")
	// 100 个字符但只有 10 个词
	assert.InDelta(t, 0.2, Score(strings.Repeat("abcdefghi ", 10)), 1e-9)
}

func TestScoreCountsRunesNotBytes(t *testing.T) {
	// 60 个汉字占 180 字节，但只有 60 个字符
	assert.Equal(t, 0.0, Score(strings.Repeat("简", 60)))
}

func TestScoreBaseline(t *testing.T) {
	text := fillerText(30)
	assert.InDelta(t, 0.3, Score(text), 1e-9, "没有任何加分项时为基础分")
}

func TestScoreWellFormedResume(t *testing.T) {
	text := resumeFixture(600)
	// 命中两组关键字 + 长文本 + 多词 + 邮箱
	expected := 0.3 + 0.4*2.0/3.0 + 0.1 + 0.1 + 0.05
	assert.InDelta(t, expected, Score(text), 1e-9)
	assert.GreaterOrEqual(t, Score(text), 0.7)
}

func TestScoreClampedToOne(t *testing.T) {
	text := resumeFixture(300) + "\nProjects and awards. Contact phone 555-123-4567"
	assert.InDelta(t, 1.0, Score(text), 1e-9, "所有加分项命中时应截断为1")
}

func TestScoreSpecialCharacterPenalty(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("ab#$ ", 25))
	assert.InDelta(t, 0.2, Score(text), 1e-9, "特殊字符过多应扣分")
}

func TestScoreCaseInsensitiveSections(t *testing.T) {
	base := Score(fillerText(30))
	withSection := Score("WORK   HISTORY " + fillerText(30))
	assert.InDelta(t, base+0.4/3.0, withSection, 1e-9)
}

func TestScoreIsPure(t *testing.T) {
	text := resumeFixture(200)
	assert.Equal(t, Score(text), Score(text))
}

func TestScoreAlwaysInRange(t *testing.T) {
	inputs := []string{
		"",
		strings.Repeat("!", 1000),
		strings.Repeat("@@ ## ", 200),
		resumeFixture(1000),
		fillerText(5),
	}
	for _, in := range inputs {
		s := Score(in)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}
