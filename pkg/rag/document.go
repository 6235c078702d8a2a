// Package rag 提供文档分块、向量索引与检索功能
package rag

// Document 文档
type Document struct {
	// Content 文档内容
	Content string `json:"content"`
	// Source 来源（文件路径、URL 等），同一来源重新入库会替换旧分块
	Source string `json:"source"`
}

// DocumentChunk 文档分块
type DocumentChunk struct {
	// ID 分块唯一标识（由来源和序号确定性生成）
	ID string `json:"id"`
	// Source 所属文档来源
	Source string `json:"source"`
	// Content 分块内容
	Content string `json:"content"`
	// Index 分块在文档中的序号
	Index int `json:"index"`
	// Vector 嵌入向量
	Vector []float32 `json:"vector,omitempty"`
}

// RetrievalResult 检索结果
type RetrievalResult struct {
	// Chunk 文档分块
	Chunk DocumentChunk `json:"chunk"`
	// Score 相关性分数
	Score float32 `json:"score"`
}

// IndexStats 索引统计信息
type IndexStats struct {
	// VectorCount 索引中的向量数
	VectorCount int `json:"vector_count"`
	// Dimensions 向量维度
	Dimensions int `json:"dimensions"`
}
