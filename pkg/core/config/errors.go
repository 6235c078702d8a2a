package config

import "errors"

// 配置验证相关错误
var (
	// ErrUnknownBackend 后端选择器无效
	ErrUnknownBackend = errors.New("unknown backend selector")
	// ErrAPIKeyRequired 云端后端缺少 API 密钥
	ErrAPIKeyRequired = errors.New("API key is required for the together backend")
	// ErrInvalidTimeout 超时时间无效
	ErrInvalidTimeout = errors.New("invalid timeout value")
	// ErrInvalidMaxRetries 重试次数无效
	ErrInvalidMaxRetries = errors.New("invalid max retries value")
	// ErrInvalidTemperature 温度值无效
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 2")
	// ErrInvalidTopP 核采样参数无效
	ErrInvalidTopP = errors.New("top_p must be between 0 and 1")
	// ErrInvalidMaxTokens Token 数无效
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")
	// ErrInvalidDimensions 向量维度无效
	ErrInvalidDimensions = errors.New("embedding dimensions must be positive")
	// ErrInvalidChunkSize 分块大小无效
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	// ErrInvalidChunkOverlap 分块重叠无效
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)
