package rag

import (
	"context"
	"math"
)

// VectorIndex 向量索引接口
//
// 统一 Qdrant、SQLite 与内存三种后端。检索失败返回错误，
// 空结果返回空切片和 nil 错误，两者含义不同。
type VectorIndex interface {
	// EnsureReady 确保索引可用（建表、建集合）
	EnsureReady(ctx context.Context) error

	// Upsert 批量写入分块向量（同 ID 覆盖）
	Upsert(ctx context.Context, chunks []DocumentChunk) error

	// DeleteBySource 删除指定来源的全部分块
	DeleteBySource(ctx context.Context, source string) error

	// DeleteAll 清空索引
	DeleteAll(ctx context.Context) error

	// Query 相似度检索
	Query(ctx context.Context, vector []float32, topK int) ([]RetrievalResult, error)

	// Sources 列出索引中的全部来源
	Sources(ctx context.Context) ([]string, error)

	// Stats 返回索引统计信息
	Stats(ctx context.Context) (IndexStats, error)

	// HealthCheck 健康检查
	HealthCheck(ctx context.Context) error

	// Close 释放资源
	Close() error
}

// cosineSimilarity 计算余弦相似度
//
// 零向量与任何向量的相似度为 0。
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
