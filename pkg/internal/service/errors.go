package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 请求参数不合法，Message 直接展示给用户.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized 凭据错误或会话无效.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLoginDisabled 未配置管理员密码.
	ErrLoginDisabled = errors.New("login disabled")
)

// UpstreamError 远程存储返回了非 2xx 状态码.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}
