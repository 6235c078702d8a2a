package llm

import (
	"net/http"
	"time"
)

// Option LLM 客户端选项函数
type Option func(*Options)

// Options LLM 客户端选项
type Options struct {
	// APIKey API 密钥
	APIKey string
	// BaseURL 自定义 API 端点
	BaseURL string
	// Model 模型名称
	Model string
	// EmbeddingModel 嵌入模型
	EmbeddingModel string
	// Timeout 请求超时
	Timeout time.Duration
	// MaxRetries 最大重试次数
	MaxRetries int
	// RetryDelay 重试间隔基数
	RetryDelay time.Duration
	// HTTPClient 自定义 HTTP 客户端（测试用）
	HTTPClient *http.Client
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		Timeout:    2 * time.Minute,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// WithAPIKey 设置 API 密钥
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithBaseURL 设置自定义端点
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

// WithModel 设置模型
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithEmbeddingModel 设置嵌入模型
func WithEmbeddingModel(model string) Option {
	return func(o *Options) {
		o.EmbeddingModel = model
	}
}

// WithTimeout 设置超时时间
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}

// WithRetryDelay 设置重试间隔
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = d
	}
}

// WithHTTPClient 设置 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}
