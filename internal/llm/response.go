package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedResponse 模型输出中没有可解析的 JSON 对象
var ErrMalformedResponse = errors.New("malformed model response")

// DecodeObject 把模型输出解析为 JSON 对象：只去掉 BOM 和代码块标记，其余内容必须是一个完整的对象。
// 前后夹带说明文字、截断或非法 JSON 都返回 ErrMalformedResponse
func DecodeObject(raw string) (map[string]any, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	obj, err := unmarshalObject(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return obj, nil
}

// StripCodeFence 去掉首尾空白、BOM 以及 ```json / ``` 包裹
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF"))
	switch {
	case strings.HasPrefix(text, "```json"):
		text = text[len("```json"):]
	case strings.HasPrefix(text, "```"):
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func unmarshalObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("JSON value is not an object")
	}
	return obj, nil
}
