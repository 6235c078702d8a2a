package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/core/llm"
	"github.com/blacksky-llc/maurice-go/pkg/otel"
)

// contextPreamble 检索上下文的引导语
const contextPreamble = "Relevant documentation:"

// DocumentStore 检索存储
//
// 组合嵌入客户端与向量索引，提供文档入库和语义检索。
// 检索失败（嵌入失败、索引失败）与空结果是两种不同的返回。
type DocumentStore struct {
	embedder llm.Embedder
	index    VectorIndex
	chunker  *Chunker
	topK     int
	logger   otel.Logger
	metrics  otel.Metrics
}

// StoreOption 检索存储选项
type StoreOption func(*DocumentStore)

// WithTopK 设置检索返回的分块数
func WithTopK(k int) StoreOption {
	return func(s *DocumentStore) {
		s.topK = k
	}
}

// WithStoreLogger 设置日志器
func WithStoreLogger(logger otel.Logger) StoreOption {
	return func(s *DocumentStore) {
		s.logger = logger
	}
}

// WithStoreMetrics 设置指标收集器
func WithStoreMetrics(metrics otel.Metrics) StoreOption {
	return func(s *DocumentStore) {
		s.metrics = metrics
	}
}

// NewDocumentStore 创建检索存储
func NewDocumentStore(embedder llm.Embedder, index VectorIndex, chunker *Chunker, opts ...StoreOption) *DocumentStore {
	s := &DocumentStore{
		embedder: embedder,
		index:    index,
		chunker:  chunker,
		topK:     3,
		logger:   otel.NewNoopLogger(),
		metrics:  otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize 初始化检索存储
//
// 索引不可达是致命错误，调用方应中止启动。
func (s *DocumentStore) Initialize(ctx context.Context) error {
	if err := s.index.HealthCheck(ctx); err != nil {
		return err
	}
	return s.index.EnsureReady(ctx)
}

// AddDocument 将文档入库
//
// 空白内容直接返回 0。先尽力删除同来源的旧分块（删除失败只记录，
// 不阻止写入），再批量嵌入并写入新分块。返回写入的分块数。
//
// 注意：删除和写入不是原子操作，并发检索可能短暂看到新旧混合的分块。
func (s *DocumentStore) AddDocument(ctx context.Context, content, source string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, nil
	}

	chunks := s.chunker.Chunk(content, source)
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := s.index.DeleteBySource(ctx, source); err != nil {
		s.logger.Warn("failed to delete stale chunks, proceeding with upsert",
			"source", source, "error", err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", errors.ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		return 0, err
	}

	s.metrics.Counter(otel.MetricRetrievalDocsIndexed).Add(ctx, 1)
	s.metrics.Counter(otel.MetricRetrievalChunksIndexed).Add(ctx, int64(len(chunks)))
	s.logger.Info("document indexed", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// AddDirectory 批量入库目录下的文档
//
// 单个文档读取或入库失败不影响其余文档，失败计入返回的错误列表。
// 返回成功入库的文档数和分块总数。
func (s *DocumentStore) AddDirectory(ctx context.Context, dir string) (int, int, []error) {
	loader := NewDirectoryLoader(dir)
	docs, failures, err := loader.Load(ctx)
	if err != nil {
		return 0, 0, []error{err}
	}
	for _, ferr := range failures {
		s.logger.Warn("failed to read document", "error", ferr)
	}

	var docCount, chunkCount int

	for _, doc := range docs {
		n, err := s.AddDocument(ctx, doc.Content, doc.Source)
		if err != nil {
			s.logger.Warn("failed to index document", "source", doc.Source, "error", err)
			failures = append(failures, errors.WrapError(err, doc.Source))
			continue
		}
		if n > 0 {
			docCount++
			chunkCount += n
		}
	}

	return docCount, chunkCount, failures
}

// Search 语义检索
//
// 空结果返回空切片和 nil 错误；嵌入或索引失败返回类型化错误，
// 调用方据此区分"没有相关内容"和"检索系统故障"。
func (s *DocumentStore) Search(ctx context.Context, query string) ([]RetrievalResult, error) {
	startTime := time.Now()
	s.metrics.Counter(otel.MetricRetrievalQueries).Add(ctx, 1)

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		s.metrics.Counter(otel.MetricRetrievalErrors).Add(ctx, 1)
		return nil, fmt.Errorf("%w: %v", errors.ErrEmbeddingFailed, err)
	}
	if len(vectors) != 1 {
		s.metrics.Counter(otel.MetricRetrievalErrors).Add(ctx, 1)
		return nil, fmt.Errorf("%w: got %d vectors for query", errors.ErrEmbeddingFailed, len(vectors))
	}

	results, err := s.index.Query(ctx, vectors[0], s.topK)
	if err != nil {
		s.metrics.Counter(otel.MetricRetrievalErrors).Add(ctx, 1)
		return nil, err
	}

	s.metrics.Histogram(otel.MetricRetrievalQueryDuration).Record(ctx, time.Since(startTime).Seconds()*1000)
	return results, nil
}

// ContextWithSources 检索并装配上下文文本
//
// 返回带引导语的上下文和按首次出现顺序去重的来源列表。
// 没有结果时返回空上下文和空来源。
func (s *DocumentStore) ContextWithSources(ctx context.Context, query string) (string, []string, error) {
	results, err := s.Search(ctx, query)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	var b strings.Builder
	b.WriteString(contextPreamble)
	b.WriteString("\n\n")

	seen := make(map[string]struct{})
	var sources []string

	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Chunk.Content)

		if _, dup := seen[r.Chunk.Source]; !dup {
			seen[r.Chunk.Source] = struct{}{}
			sources = append(sources, r.Chunk.Source)
		}
	}

	return b.String(), sources, nil
}

// Count 返回索引中的分块数
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.VectorCount, nil
}

// Sources 列出索引中的全部来源
func (s *DocumentStore) Sources(ctx context.Context) ([]string, error) {
	return s.index.Sources(ctx)
}

// Clear 清空索引
func (s *DocumentStore) Clear(ctx context.Context) error {
	return s.index.DeleteAll(ctx)
}
