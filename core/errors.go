package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 错误分类：
//   - NOT_FOUND：商品或用户在所选存储中不存在（上游不可用在编排层也归为此类）
//   - UNAVAILABLE：上游存储网络失败、超时或熔断
//   - INVALID_INPUT：请求参数不合法
//   - PREDICTION_FAILED：模型推理失败，不重试、不降级
//
// Cause 保留底层错误，可通过 errors.Is / errors.As 继续判断。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "source", "model"）
	Cause   error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is 按 Module + Code 比较，使 errors.Is(err, ErrNotFound) 这类哨兵判断生效。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, cause error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在
	ErrorCodeUnavailable      = "UNAVAILABLE"       // 上游不可用
	ErrorCodeInvalidInput     = "INVALID_INPUT"     // 输入无效
	ErrorCodePredictionFailed = "PREDICTION_FAILED" // 模型推理失败
	ErrorCodeInternalError    = "INTERNAL_ERROR"    // 内部错误
)

// 模块名称常量
const (
	ModuleSource  = "source"  // 数据源模块
	ModuleModel   = "model"   // 模型模块
	ModuleStore   = "store"   // 存储模块
	ModulePredict = "predict" // 编排模块
	ModuleService = "service" // 远程模型服务模块
)

// 哨兵错误，仅用于 errors.Is 判断（Module 为空表示任意模块）
var (
	ErrNotFound         = &DomainError{Code: ErrorCodeNotFound, Message: "not found"}
	ErrUnavailable      = &DomainError{Code: ErrorCodeUnavailable, Message: "unavailable"}
	ErrInvalidInput     = &DomainError{Code: ErrorCodeInvalidInput, Message: "invalid input"}
	ErrPredictionFailed = &DomainError{Code: ErrorCodePredictionFailed, Message: "prediction failed"}
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsPredictionFailed 检查错误是否为 PREDICTION_FAILED
func IsPredictionFailed(err error) bool {
	return hasCode(err, ErrorCodePredictionFailed)
}

// hasCode 只看最外层的 DomainError，编排层包装后的分类以外层为准。
func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
