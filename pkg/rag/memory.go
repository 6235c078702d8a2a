package rag

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex 内存向量索引
//
// 无持久化，适用于测试和小规模默认部署。
// 检索按分数降序排列，同分保持写入顺序。
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []DocumentChunk
	byID   map[string]int
}

// NewMemoryIndex 创建内存向量索引
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byID: make(map[string]int),
	}
}

// EnsureReady 确保索引可用
func (m *MemoryIndex) EnsureReady(ctx context.Context) error {
	return nil
}

// Upsert 批量写入分块向量
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, chunk := range chunks {
		if pos, ok := m.byID[chunk.ID]; ok {
			m.chunks[pos] = chunk
			continue
		}
		m.byID[chunk.ID] = len(m.chunks)
		m.chunks = append(m.chunks, chunk)
	}

	return nil
}

// DeleteBySource 删除指定来源的全部分块
func (m *MemoryIndex) DeleteBySource(ctx context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.chunks[:0]
	for _, chunk := range m.chunks {
		if chunk.Source != source {
			kept = append(kept, chunk)
		}
	}
	m.chunks = kept

	m.byID = make(map[string]int, len(m.chunks))
	for i, chunk := range m.chunks {
		m.byID[chunk.ID] = i
	}

	return nil
}

// DeleteAll 清空索引
func (m *MemoryIndex) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunks = nil
	m.byID = make(map[string]int)
	return nil
}

// Query 相似度检索
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int) ([]RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]RetrievalResult, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		results = append(results, RetrievalResult{
			Chunk: chunk,
			Score: cosineSimilarity(vector, chunk.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}

// Sources 列出索引中的全部来源
func (m *MemoryIndex) Sources(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var sources []string
	for _, chunk := range m.chunks {
		if _, ok := seen[chunk.Source]; ok {
			continue
		}
		seen[chunk.Source] = struct{}{}
		sources = append(sources, chunk.Source)
	}

	return sources, nil
}

// Stats 返回索引统计信息
func (m *MemoryIndex) Stats(ctx context.Context) (IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := IndexStats{VectorCount: len(m.chunks)}
	if len(m.chunks) > 0 {
		stats.Dimensions = len(m.chunks[0].Vector)
	}

	return stats, nil
}

// HealthCheck 健康检查
func (m *MemoryIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// Close 释放资源
func (m *MemoryIndex) Close() error {
	return nil
}

// compile-time interface check
var _ VectorIndex = (*MemoryIndex)(nil)
