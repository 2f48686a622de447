package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	lineEndingRe     = regexp.MustCompile(`\r\n|\r`)
	controlCharRe    = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	privateUseRe     = regexp.MustCompile(`[\x{F000}-\x{F8FF}]`)
	horizontalRunRe  = regexp.MustCompile(`[^\S\n]+`)
	excessNewlinesRe = regexp.MustCompile(`\n{3,}`)
)

// Clean 规范化提取出的原始文本，保留换行以便模型识别段落结构
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKD.String(text)
	text = lineEndingRe.ReplaceAllString(text, "\n")
	text = controlCharRe.ReplaceAllString(text, "")
	// PDF 字体映射常见的私有区字符
	text = privateUseRe.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && !unicode.IsPrint(r) {
			return ' '
		}
		return r
	}, text)
	text = horizontalRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = excessNewlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
