package types

import (
	"errors"
	"fmt"
	"strings"
)

// 基础错误类型
var (
	ErrDocumentNotFound   = errors.New("文档不存在")
	ErrUnsupportedFormat  = errors.New("不支持的文档格式")
	ErrProviderFailed     = errors.New("分析服务调用失败")
	ErrInvalidJobQuestion = errors.New("面试问题无效")
)

// NotFoundError 文档引用无法解析
type NotFoundError struct {
	Ref    string
	Detail string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (引用:%s): %s", ErrDocumentNotFound, e.Ref, e.Detail)
	}
	return fmt.Sprintf("%s (引用:%s)", ErrDocumentNotFound, e.Ref)
}

func (e *NotFoundError) Unwrap() error {
	return ErrDocumentNotFound
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *NotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}

// NewNotFoundError 构造 NotFoundError
func NewNotFoundError(ref, detail string) error {
	return &NotFoundError{Ref: ref, Detail: detail}
}

// UnsupportedFormatError 格式不在封闭集合内
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	supported := make([]string, 0, len(SupportedFormats()))
	for _, f := range SupportedFormats() {
		supported = append(supported, string(f))
	}
	return fmt.Sprintf("%s: %q (supported: %s)", ErrUnsupportedFormat, e.Format, strings.Join(supported, ", "))
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// NewUnsupportedFormatError 构造 UnsupportedFormatError
func NewUnsupportedFormatError(format string) error {
	return &UnsupportedFormatError{Format: format}
}

// ProviderError 分析服务调用在重试耗尽或遇到永久错误后失败
type ProviderError struct {
	Op       string
	Attempts int
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (操作:%s, 尝试:%d次): %v", ErrProviderFailed, e.Op, e.Attempts, e.Cause)
}

// Unwrap 返回底层错误，便于 errors.As 取到 provider 的具体错误
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailed
}

// NewProviderError 构造 ProviderError
func NewProviderError(op string, attempts int, cause error) error {
	return &ProviderError{Op: op, Attempts: attempts, Cause: cause}
}
