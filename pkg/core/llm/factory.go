package llm

import (
	"fmt"

	"github.com/blacksky-llc/maurice-go/pkg/core/config"
	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
)

// NewProvider 根据配置创建推理后端
//
// 未知的后端选择器是致命配置错误。
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return NewLocalClient(
			WithLocalBaseURL(cfg.BaseURL),
			WithLocalModel(cfg.Model),
			WithLocalGPULayers(cfg.GPULayers),
		), nil

	case config.BackendTogether:
		return NewTogetherClient(
			WithAPIKey(cfg.APIKey),
			WithBaseURL(cfg.BaseURL),
			WithModel(cfg.Model),
			WithEmbeddingModel(cfg.EmbeddingModel),
			WithTimeout(cfg.Timeout),
			WithMaxRetries(cfg.MaxRetries),
			WithRetryDelay(cfg.RetryDelay),
		)

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, cfg.Backend)
	}
}

// NewEmbedder 根据配置创建嵌入客户端
//
// 两种后端都实现 Embedder，嵌入始终跟随推理后端。
func NewEmbedder(cfg config.LLMConfig) (Embedder, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	embedder, ok := provider.(Embedder)
	if !ok {
		return nil, fmt.Errorf("%w: backend %q has no embedding support", errors.ErrUnknownBackend, cfg.Backend)
	}

	return embedder, nil
}

// ParamsFromConfig 从生成配置构建采样参数
func ParamsFromConfig(cfg config.GenerationConfig, stop []string) Params {
	return Params{
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		RepeatPenalty: cfg.RepeatPenalty,
		Stop:          stop,
	}
}
