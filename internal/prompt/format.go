package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"resume-analyzer/internal/types"
)

// NotSpecified 岗位字段缺省时的占位文本
const NotSpecified = "Not specified"

// ErrMissingVariable 模板引用了未提供的变量
var ErrMissingVariable = errors.New("missing prompt variable")

// Format 替换模板中的 {name} 变量，{{ 和 }} 输出为字面量花括号。
// 变量缺失或花括号不成对时返回错误
func Format(tpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl))

	for i := 0; i < len(tpl); i++ {
		c := tpl[i]
		switch c {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("位置 %d 的花括号未闭合", i)
			}
			name := tpl[i+1 : i+1+end]
			if !isIdentifier(name) {
				return "", fmt.Errorf("无效的变量名 %q", name)
			}
			value, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrMissingVariable, name)
			}
			b.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("位置 %d 有多余的右花括号", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

// Variables 从模板中提取变量名，按首次出现顺序去重
func Variables(tpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(tpl); i++ {
		if tpl[i] != '{' {
			continue
		}
		if i+1 < len(tpl) && tpl[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(tpl[i+1:], '}')
		if end < 0 {
			break
		}
		name := tpl[i+1 : i+1+end]
		if isIdentifier(name) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i += end + 1
	}
	return names
}

// FormatJobContext 每行一个岗位字段，nil 返回空串
func FormatJobContext(job *types.JobContext) string {
	if job == nil {
		return ""
	}
	lines := []string{
		"Job Title: " + orNotSpecified(job.Title),
		"Description: " + orNotSpecified(job.Description),
		"Requirements: " + strings.Join(job.Requirements, ", "),
		"Experience Level: " + orNotSpecified(job.ExperienceLevel),
		"Location: " + orNotSpecified(job.Location),
		"Job Type: " + orNotSpecified(job.JobType),
	}
	return strings.Join(lines, "\n")
}

// JobContextBlock 岗位上下文加匹配字段说明，作为 job_context 变量的值
func JobContextBlock(job *types.JobContext) string {
	if job == nil {
		return ""
	}
	return "Job Context for Matching Analysis:\n" + FormatJobContext(job) + "\n\n" + JobMatchingInstruction
}

// FormatQuestions 格式化为 "Q1: 问题 (Weight: 1.0)"，每行一个
func FormatQuestions(questions []types.JobQuestion) string {
	if len(questions) == 0 {
		return "No questions to assess."
	}
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = fmt.Sprintf("Q%d: %s (Weight: %s)", i+1, q.Question, FormatFloat(q.Weight))
	}
	return strings.Join(lines, "\n")
}

// FormatFloat 整数值也保留一位小数，例如 1 -> "1.0"，0.25 -> "0.25"
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// JoinFirst 取前 n 项用逗号连接
func JoinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}
