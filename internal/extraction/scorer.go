package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// 评分阈值和权重，可按需调整
var (
	MinTextLength      = 100
	MinWordCount       = 20
	ShortTextScore     = 0.2
	BaseScore          = 0.3
	SectionWeight      = 0.4
	LongTextLength     = 500
	LongTextBonus      = 0.1
	ManyWordsCount     = 100
	ManyWordsBonus     = 0.1
	ContactBonus       = 0.05
	SpecialCharRatio   = 0.1
	SpecialCharPenalty = 0.1
)

// sectionPatterns 简历常见段落关键字分组
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(experience|education|skills|summary|objective|employment|work\s+history)\b`),
	regexp.MustCompile(`(?i)\b(projects|achievements|certifications|awards|publications)\b`),
	regexp.MustCompile(`(?i)\b(contact|email|phone|address|linkedin)\b`),
}

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
)

// Score 对清洗后的文本给出 [0,1] 的置信度，纯函数
func Score(text string) float64 {
	length := utf8.RuneCountInString(text)
	if length < MinTextLength {
		return 0.0
	}

	words := len(strings.Fields(text))
	if words < MinWordCount {
		return ShortTextScore
	}

	confidence := BaseScore

	matched := 0
	for _, re := range sectionPatterns {
		if re.MatchString(text) {
			matched++
		}
	}
	confidence += SectionWeight * float64(matched) / float64(len(sectionPatterns))

	if length > LongTextLength {
		confidence += LongTextBonus
	}
	if words > ManyWordsCount {
		confidence += ManyWordsBonus
	}

	if emailRe.MatchString(text) {
		confidence += ContactBonus
	}
	if phoneRe.MatchString(text) {
		confidence += ContactBonus
	}

	if specialRatio(text, length) > SpecialCharRatio {
		confidence -= SpecialCharPenalty
	}

	return math.Min(math.Max(confidence, 0.0), 1.0)
}

// specialRatio 既非字母数字、下划线，也非空白的字符占比
func specialRatio(text string, length int) float64 {
	if length == 0 {
		return 0
	}
	special := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			continue
		}
		special++
	}
	return float64(special) / float64(length)
}
