package types

import (
	"errors"
	"fmt"
)

// 密钥与签名相关错误
var (
	// ErrInvalidKeyMaterial 密钥材料非法（长度不是 32 字节等），不可重试
	ErrInvalidKeyMaterial = errors.New("密钥材料非法")
	// ErrSecretUnavailable 无法解析对端公钥，共享密钥不可用
	ErrSecretUnavailable = errors.New("共享密钥不可用")
)

// 服务端错误码（调用方需要区分处理的部分，其余码原样透传）
const (
	// CodeNoAvailableRoute 该资产对没有可用兑换路径
	CodeNoAvailableRoute = 10611
	// CodeAmountOutOfRange 金额超出允许区间（extra.range 携带上下限）
	CodeAmountOutOfRange = 10614
	// CodeInvalidSwapConfig 兑换参数配置非法
	CodeInvalidSwapConfig = 10615
)

// AmountRange 金额允许区间（十进制字符串）
type AmountRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// ApiError 服务端拒绝请求
// 4xx 为终态错误，5xx 允许按传输层策略重试
type ApiError struct {
	Status      int          `json:"-"`
	Code        int          `json:"code"`
	Description string       `json:"description"`
	Range       *AmountRange `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("服务端错误 %d (HTTP %d): %s [%s, %s]",
			e.Code, e.Status, e.Description, e.Range.Min, e.Range.Max)
	}
	return fmt.Sprintf("服务端错误 %d (HTTP %d): %s", e.Code, e.Status, e.Description)
}

// Retryable 5xx 可重试，4xx（含 202 当作错误处理的情况）不可重试
func (e *ApiError) Retryable() bool {
	return e.Status >= 500
}

// AsApiError 从错误链中取出 ApiError
func AsApiError(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAmountOutOfRange 金额越界错误（返回允许区间）
func IsAmountOutOfRange(err error) (*AmountRange, bool) {
	if apiErr, ok := AsApiError(err); ok && apiErr.Code == CodeAmountOutOfRange {
		return apiErr.Range, true
	}
	return nil, false
}

// IsNoAvailableRoute 无可用路径错误
func IsNoAvailableRoute(err error) bool {
	apiErr, ok := AsApiError(err)
	return ok && apiErr.Code == CodeNoAvailableRoute
}

// IsInvalidSwapConfig 兑换配置非法错误
func IsInvalidSwapConfig(err error) bool {
	apiErr, ok := AsApiError(err)
	return ok && apiErr.Code == CodeInvalidSwapConfig
}

// ValidationError 客户端前置校验失败（任何网络调用之前必须拒绝）
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "参数校验失败: " + e.Reason
}

// IsValidationError 是否为客户端校验错误
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
