// Package config 提供配置加载和管理功能
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config 全局配置结构
type Config struct {
	// LLM LLM 配置
	LLM LLMConfig `koanf:"llm"`
	// Generation 生成采样参数
	Generation GenerationConfig `koanf:"generation"`
	// Chat 对话配置
	Chat ChatConfig `koanf:"chat"`
	// Retrieval 检索配置
	Retrieval RetrievalConfig `koanf:"retrieval"`
	// Agent Agent 平台配置
	Agent AgentConfig `koanf:"agent"`
	// Observability 可观测性配置
	Observability ObservabilityConfig `koanf:"observability"`
}

// ChatConfig 对话配置
type ChatConfig struct {
	// MaxHistoryTurns 提示中保留的最近历史轮数
	// 默认: 4
	MaxHistoryTurns int `koanf:"max_history_turns"`
	// Debug 是否在响应中附带提示装配调试信息
	Debug bool `koanf:"debug"`
}

// AgentConfig Agent 平台配置
type AgentConfig struct {
	// BaseURL Agent 平台地址（为空表示未配置）
	BaseURL string `koanf:"base_url"`
	// APIKey 访问密钥
	APIKey string `koanf:"api_key"`
	// Timeout 查询超时
	// 默认: 2s（查询在请求路径上，必须短）
	Timeout time.Duration `koanf:"timeout"`
	// CacheTTL 查询结果缓存时间
	// 默认: 5m
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	// Enabled 是否启用
	Enabled bool `koanf:"enabled"`
	// ServiceName 服务名称
	ServiceName string `koanf:"service_name"`
	// TracerEndpoint 追踪端点
	TracerEndpoint string `koanf:"tracer_endpoint"`
	// MetricsEndpoint 指标端点
	MetricsEndpoint string `koanf:"metrics_endpoint"`
	// SampleRate 采样率 [0, 1]
	SampleRate float64 `koanf:"sample_rate"`
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New("."),
	}
}

// LoadEnv 从环境变量加载配置
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		// 转换环境变量名: MAURICE_LLM_API_KEY -> llm.api_key
		// 只切分第一个下划线：段名都是单词，叶子键可以包含下划线
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		s = strings.Replace(s, "_", ".", 1)
		return s
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Load 从环境变量加载完整配置
//
// 配置错误是致命的：Load 返回错误时调用方应中止启动。
func Load() (*Config, error) {
	loader := NewLoader()

	if err := loader.LoadEnv("MAURICE_"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 验证全部配置段
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	return nil
}

// applyDefaults 应用默认配置值
func applyDefaults(cfg *Config) {
	cfg.LLM = cfg.LLM.WithDefaults()
	cfg.Generation = cfg.Generation.WithDefaults()
	cfg.Retrieval = cfg.Retrieval.WithDefaults()

	if cfg.Chat.MaxHistoryTurns == 0 {
		cfg.Chat.MaxHistoryTurns = 4
	}

	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 2 * time.Second
	}
	if cfg.Agent.CacheTTL == 0 {
		cfg.Agent.CacheTTL = 5 * time.Minute
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "maurice"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
}
