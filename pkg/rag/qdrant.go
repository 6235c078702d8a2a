package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
)

// QdrantIndex Qdrant 向量索引
//
// 基于 Qdrant REST API 的云端索引实现。
type QdrantIndex struct {
	baseURL    string
	apiKey     string
	collection string
	dimensions int
	httpClient *http.Client
}

// QdrantConfig Qdrant 索引配置
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	Timeout    time.Duration
}

// NewQdrantIndex 创建 Qdrant 向量索引
func NewQdrantIndex(config QdrantConfig) *QdrantIndex {
	if config.URL == "" {
		config.URL = "http://localhost:6333"
	}
	if config.Collection == "" {
		config.Collection = "maurice_docs"
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 768
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &QdrantIndex{
		baseURL:    config.URL,
		apiKey:     config.APIKey,
		collection: config.Collection,
		dimensions: config.Dimensions,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// EnsureReady 确保集合存在
func (q *QdrantIndex) EnsureReady(ctx context.Context) error {
	req, err := q.newRequest(ctx, "GET", fmt.Sprintf("/collections/%s", q.collection), nil)
	if err != nil {
		return err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrIndexUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	createBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.dimensions,
			"distance": "Cosine",
		},
	}

	req, err = q.newRequest(ctx, "PUT", fmt.Sprintf("/collections/%s", q.collection), createBody)
	if err != nil {
		return err
	}

	resp, err = q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrIndexUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: failed to create collection: %s", errors.ErrVectorStoreFailed, string(body))
	}

	return nil
}

// Upsert 批量写入分块向量
func (q *QdrantIndex) Upsert(ctx context.Context, chunks []DocumentChunk) error {
	points := make([]map[string]interface{}, len(chunks))
	for i, chunk := range chunks {
		points[i] = map[string]interface{}{
			"id":     chunk.ID,
			"vector": chunk.Vector,
			"payload": map[string]interface{}{
				"source":      chunk.Source,
				"content":     chunk.Content,
				"chunk_index": chunk.Index,
			},
		}
	}

	body := map[string]interface{}{"points": points}

	req, err := q.newRequest(ctx, "PUT", fmt.Sprintf("/collections/%s/points", q.collection), body)
	if err != nil {
		return err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: upsert failed: %s", errors.ErrVectorStoreFailed, string(respBody))
	}

	return nil
}

// DeleteBySource 删除指定来源的全部分块
func (q *QdrantIndex) DeleteBySource(ctx context.Context, source string) error {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "source",
					"match": map[string]interface{}{"value": source},
				},
			},
		},
	}

	req, err := q.newRequest(ctx, "POST", fmt.Sprintf("/collections/%s/points/delete", q.collection), body)
	if err != nil {
		return err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: delete by source failed: %s", errors.ErrVectorStoreFailed, string(respBody))
	}

	return nil
}

// DeleteAll 清空索引
//
// 删除并重建集合，404 视为已空。
func (q *QdrantIndex) DeleteAll(ctx context.Context) error {
	req, err := q.newRequest(ctx, "DELETE", fmt.Sprintf("/collections/%s", q.collection), nil)
	if err != nil {
		return err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: clear failed: %s", errors.ErrVectorStoreFailed, string(respBody))
	}

	return q.EnsureReady(ctx)
}

// Query 相似度检索
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int) ([]RetrievalResult, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	req, err := q.newRequest(ctx, "POST", fmt.Sprintf("/collections/%s/points/search", q.collection), body)
	if err != nil {
		return nil, err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: search failed: %s", errors.ErrVectorStoreFailed, string(respBody))
	}

	var result struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}

	results := make([]RetrievalResult, len(result.Result))
	for i, r := range result.Result {
		chunk := DocumentChunk{ID: r.ID}
		if source, ok := r.Payload["source"].(string); ok {
			chunk.Source = source
		}
		if content, ok := r.Payload["content"].(string); ok {
			chunk.Content = content
		}
		if idx, ok := r.Payload["chunk_index"].(float64); ok {
			chunk.Index = int(idx)
		}
		results[i] = RetrievalResult{Chunk: chunk, Score: r.Score}
	}

	return results, nil
}

// Sources 列出索引中的全部来源
//
// 通过 scroll API 遍历 payload 去重。
func (q *QdrantIndex) Sources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var sources []string
	var offset interface{}

	for {
		body := map[string]interface{}{
			"limit":        256,
			"with_payload": []string{"source"},
		}
		if offset != nil {
			body["offset"] = offset
		}

		req, err := q.newRequest(ctx, "POST", fmt.Sprintf("/collections/%s/points/scroll", q.collection), body)
		if err != nil {
			return nil, err
		}

		resp, err := q.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: scroll failed: %s", errors.ErrVectorStoreFailed, string(respBody))
		}

		var result struct {
			Result struct {
				Points []struct {
					Payload map[string]interface{} `json:"payload"`
				} `json:"points"`
				NextPageOffset interface{} `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
		}
		resp.Body.Close()

		for _, point := range result.Result.Points {
			source, ok := point.Payload["source"].(string)
			if !ok {
				continue
			}
			if _, dup := seen[source]; dup {
				continue
			}
			seen[source] = struct{}{}
			sources = append(sources, source)
		}

		if result.Result.NextPageOffset == nil {
			break
		}
		offset = result.Result.NextPageOffset
	}

	return sources, nil
}

// Stats 返回索引统计信息
func (q *QdrantIndex) Stats(ctx context.Context) (IndexStats, error) {
	req, err := q.newRequest(ctx, "GET", fmt.Sprintf("/collections/%s", q.collection), nil)
	if err != nil {
		return IndexStats{}, err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return IndexStats{}, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return IndexStats{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return IndexStats{}, fmt.Errorf("%w: get stats failed: %s", errors.ErrVectorStoreFailed, string(respBody))
	}

	var result struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return IndexStats{}, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}

	return IndexStats{
		VectorCount: result.Result.PointsCount,
		Dimensions:  result.Result.Config.Params.Vectors.Size,
	}, nil
}

// HealthCheck 健康检查
func (q *QdrantIndex) HealthCheck(ctx context.Context) error {
	req, err := q.newRequest(ctx, "GET", "/", nil)
	if err != nil {
		return err
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrIndexUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errors.ErrIndexUnreachable, resp.StatusCode)
	}

	return nil
}

// Close 释放资源
func (q *QdrantIndex) Close() error {
	q.httpClient.CloseIdleConnections()
	return nil
}

// newRequest 创建 HTTP 请求
func (q *QdrantIndex) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	return req, nil
}

// compile-time interface check
var _ VectorIndex = (*QdrantIndex)(nil)
