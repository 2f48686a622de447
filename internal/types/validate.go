package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate 校验问题内容非空且权重为正
func (q JobQuestion) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJobQuestion, err)
	}
	return nil
}

// ValidateStruct 使用结构体标签校验任意请求对象
func ValidateStruct(v any) error {
	return validate.Struct(v)
}
