package rag

import (
	"fmt"

	"github.com/blacksky-llc/maurice-go/pkg/core/config"
	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
)

// NewVectorIndex 根据配置创建向量索引
//
// 未知的后端选择器是致命配置错误。
func NewVectorIndex(cfg config.RetrievalConfig) (VectorIndex, error) {
	switch cfg.Backend {
	case config.IndexQdrant:
		return NewQdrantIndex(QdrantConfig{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		}), nil

	case config.IndexSQLite:
		return NewSQLiteIndex(cfg.Path)

	case config.IndexMemory:
		return NewMemoryIndex(), nil

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, cfg.Backend)
	}
}
