package config

import "time"

// Backend LLM 后端类型
type Backend string

const (
	// BackendLocal 本地推理（llama.cpp server）
	BackendLocal Backend = "local"
	// BackendTogether Together 云端推理
	BackendTogether Backend = "together"
)

// IsValid 检查后端是否有效
func (b Backend) IsValid() bool {
	switch b {
	case BackendLocal, BackendTogether:
		return true
	default:
		return false
	}
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Backend 后端选择器
	Backend Backend `koanf:"backend"`
	// Model 模型名称
	Model string `koanf:"model"`
	// APIKey API 密钥（together 后端必填）
	APIKey string `koanf:"api_key"`
	// BaseURL 自定义 API 端点
	BaseURL string `koanf:"base_url"`
	// EmbeddingModel 嵌入模型名称
	EmbeddingModel string `koanf:"embedding_model"`
	// GPULayers 本地推理的 GPU 层数（仅用于统计展示）
	GPULayers int `koanf:"gpu_layers"`
	// Timeout 请求超时时间
	// 默认: 2m, 最大: 5m
	Timeout time.Duration `koanf:"timeout"`
	// MaxRetries 最大重试次数
	// 默认: 3, 最大: 10
	MaxRetries int `koanf:"max_retries"`
	// RetryDelay 重试间隔基数
	// 默认: 1s
	RetryDelay time.Duration `koanf:"retry_delay"`
}

// Validate 验证 LLM 配置
func (c *LLMConfig) Validate() error {
	if !c.Backend.IsValid() {
		return ErrUnknownBackend
	}
	if c.Backend == BackendTogether && c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Timeout > 5*time.Minute {
		c.Timeout = 5 * time.Minute
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.MaxRetries > 10 {
		c.MaxRetries = 10
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c LLMConfig) WithDefaults() LLMConfig {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.Model == "" {
		switch c.Backend {
		case BackendTogether:
			c.Model = "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo"
		default:
			c.Model = "llama-3.1-8b-instruct"
		}
	}
	if c.BaseURL == "" && c.Backend == BackendLocal {
		c.BaseURL = "http://localhost:8080"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "togethercomputer/m2-bert-80M-8k-retrieval"
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// GenerationConfig 生成采样参数
type GenerationConfig struct {
	// MaxTokens 最大输出 token
	// 默认: 400
	MaxTokens int `koanf:"max_tokens"`
	// Temperature 采样温度 [0, 2]
	// 默认: 0.3
	Temperature float64 `koanf:"temperature"`
	// TopP 核采样参数 (0, 1]
	// 默认: 0.9
	TopP float64 `koanf:"top_p"`
	// RepeatPenalty 重复惩罚（乘性，1.0 为不惩罚）
	// 默认: 1.1
	RepeatPenalty float64 `koanf:"repeat_penalty"`
}

// Validate 验证生成参数
func (c *GenerationConfig) Validate() error {
	if c.MaxTokens < 0 {
		return ErrInvalidMaxTokens
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrInvalidTemperature
	}
	if c.TopP < 0 || c.TopP > 1 {
		return ErrInvalidTopP
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c GenerationConfig) WithDefaults() GenerationConfig {
	if c.MaxTokens == 0 {
		c.MaxTokens = 400
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.TopP == 0 {
		c.TopP = 0.9
	}
	if c.RepeatPenalty == 0 {
		c.RepeatPenalty = 1.1
	}
	return c
}
