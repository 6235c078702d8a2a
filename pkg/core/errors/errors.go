// Package errors 定义核心模块的通用错误类型
package errors

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownBackend 未知的后端选择器
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrContextCanceled 上下文被取消
	ErrContextCanceled = errors.New("context canceled")
)

// LLM 相关错误
var (
	// ErrRateLimited 请求被限速
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout 请求超时
	ErrTimeout = errors.New("request timeout")
	// ErrInvalidAPIKey API 密钥无效
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrModelNotLoaded 模型未加载
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrProviderUnavailable 提供商不可用
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidResponse LLM 响应无效
	ErrInvalidResponse = errors.New("invalid LLM response")
)

// 检索相关错误
//
// 检索失败与空结果是两种不同的情况：空结果返回空切片和 nil 错误，
// 失败返回下列错误之一。调用方据此决定降级策略。
var (
	// ErrEmbeddingFailed 嵌入失败
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrVectorStoreFailed 向量存储失败
	ErrVectorStoreFailed = errors.New("vector store operation failed")
	// ErrIndexUnreachable 向量索引不可达
	ErrIndexUnreachable = errors.New("vector index unreachable")
)

// Agent 平台相关错误
var (
	// ErrAgentUnavailable Agent 平台不可用
	ErrAgentUnavailable = errors.New("agent platform unavailable")
	// ErrAgentNotConfigured Agent 平台未配置
	ErrAgentNotConfigured = errors.New("agent platform not configured")
)

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderUnavailable)
}

// IsFatal 判断错误是否为致命错误（不可恢复）
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidAPIKey) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownBackend)
}
