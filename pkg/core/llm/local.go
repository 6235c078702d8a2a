package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/core/message"
)

// LocalClient 本地推理客户端（llama.cpp server）
//
// 提示文本原样转发给推理服务，不做结构化转换；
// 采样参数与停止序列全部生效。
type LocalClient struct {
	baseURL    string
	model      string
	gpuLayers  int
	httpClient *http.Client

	mu          sync.RWMutex
	ready       bool
	contextSize int
}

// LocalOption 本地客户端选项
type LocalOption func(*LocalClient)

// WithLocalBaseURL 设置推理服务地址
func WithLocalBaseURL(url string) LocalOption {
	return func(c *LocalClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithLocalModel 设置模型名称
func WithLocalModel(model string) LocalOption {
	return func(c *LocalClient) {
		c.model = model
	}
}

// WithLocalGPULayers 设置 GPU 层数（仅用于统计展示）
func WithLocalGPULayers(n int) LocalOption {
	return func(c *LocalClient) {
		c.gpuLayers = n
	}
}

// WithLocalHTTPClient 设置 HTTP 客户端
func WithLocalHTTPClient(client *http.Client) LocalOption {
	return func(c *LocalClient) {
		c.httpClient = client
	}
}

// NewLocalClient 创建本地推理客户端
func NewLocalClient(opts ...LocalOption) *LocalClient {
	c := &LocalClient{
		baseURL: "http://localhost:8080",
		model:   "llama-3.1-8b-instruct",
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// completionRequest llama.cpp /completion 请求结构
type completionRequest struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict,omitempty"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Stream        bool     `json:"stream"`
}

// completionResponse llama.cpp /completion 响应结构
type completionResponse struct {
	Content         string `json:"content"`
	Stop            bool   `json:"stop"`
	StoppedEOS      bool   `json:"stopped_eos"`
	StoppedWord     bool   `json:"stopped_word"`
	StoppedLimit    bool   `json:"stopped_limit"`
	TokensEvaluated int    `json:"tokens_evaluated"`
	TokensPredicted int    `json:"tokens_predicted"`
}

// Load 确认推理服务可用并缓存运行时属性
func (c *LocalClient) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapError(err, "local inference server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", errors.ErrProviderUnavailable, resp.StatusCode)
	}

	contextSize, err := c.fetchContextSize(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ready = true
	c.contextSize = contextSize
	c.mu.Unlock()

	return nil
}

// fetchContextSize 从 /props 读取上下文窗口大小
func (c *LocalClient) fetchContextSize(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/props", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.WrapError(err, "failed to fetch server props")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 老版本服务没有 /props，上下文大小未知
		return 0, nil
	}

	var props struct {
		DefaultGenerationSettings struct {
			NCtx int `json:"n_ctx"`
		} `json:"default_generation_settings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&props); err != nil {
		return 0, nil
	}

	return props.DefaultGenerationSettings.NCtx, nil
}

// Generate 生成响应（非流式）
func (c *LocalClient) Generate(ctx context.Context, prompt string, params Params) (Response, error) {
	if !c.Ready() {
		return Response{}, errors.ErrModelNotLoaded
	}

	body, err := json.Marshal(c.buildRequest(prompt, params, false))
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, errors.WrapError(err, "completion request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, mapLocalStatus(resp)
	}

	var compResp completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&compResp); err != nil {
		return Response{}, errors.WrapError(err, "failed to decode completion response")
	}

	return Response{
		Content:      compResp.Content,
		FinishReason: mapStopReason(compResp),
		TokenUsage: message.TokenUsage{
			PromptTokens:     compResp.TokensEvaluated,
			CompletionTokens: compResp.TokensPredicted,
			TotalTokens:      compResp.TokensEvaluated + compResp.TokensPredicted,
		},
	}, nil
}

// GenerateStream 生成响应（流式）
func (c *LocalClient) GenerateStream(ctx context.Context, prompt string, params Params) (<-chan StreamChunk, <-chan error) {
	chunkCh := make(chan StreamChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)

		if !c.Ready() {
			errCh <- errors.ErrModelNotLoaded
			return
		}

		body, err := json.Marshal(c.buildRequest(prompt, params, true))
		if err != nil {
			errCh <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/completion", bytes.NewReader(body))
		if err != nil {
			errCh <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			errCh <- errors.WrapError(err, "completion request failed")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errCh <- mapLocalStatus(resp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var streamResp completionResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &streamResp); err != nil {
				errCh <- errors.WrapError(err, "failed to decode stream chunk")
				return
			}

			chunk := StreamChunk{
				Content: streamResp.Content,
				Done:    streamResp.Stop,
			}

			if streamResp.Stop {
				chunk.FinishReason = mapStopReason(streamResp)
				chunk.TokenUsage = &message.TokenUsage{
					PromptTokens:     streamResp.TokensEvaluated,
					CompletionTokens: streamResp.TokensPredicted,
					TotalTokens:      streamResp.TokensEvaluated + streamResp.TokensPredicted,
				}
			}

			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}

			if streamResp.Stop {
				break
			}
		}

		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("stream read error: %w", err)
		}
	}()

	return chunkCh, errCh
}

// Embed 生成文本嵌入向量
func (c *LocalClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	for i, text := range texts {
		body, err := json.Marshal(map[string]string{"content": text})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embed request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embedding", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create embed request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrEmbeddingFailed, err)
		}

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d - %s", errors.ErrEmbeddingFailed, resp.StatusCode, string(bodyBytes))
		}

		var embedResp struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %v", errors.ErrEmbeddingFailed, err)
		}
		resp.Body.Close()

		results[i] = embedResp.Embedding
	}

	return results, nil
}

// Ready 返回后端是否已就绪
func (c *LocalClient) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// ContextSize 返回模型上下文窗口大小（Load 之后有效）
func (c *LocalClient) ContextSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contextSize
}

// GPULayers 返回配置的 GPU 层数
func (c *LocalClient) GPULayers() int {
	return c.gpuLayers
}

// Name 返回后端名称
func (c *LocalClient) Name() string {
	return "local"
}

// Model 返回当前模型名称
func (c *LocalClient) Model() string {
	return c.model
}

// Close 关闭客户端连接
func (c *LocalClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// buildRequest 构建 /completion 请求
func (c *LocalClient) buildRequest(prompt string, params Params, stream bool) completionRequest {
	return completionRequest{
		Prompt:        prompt,
		NPredict:      params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		RepeatPenalty: params.RepeatPenalty,
		Stop:          params.Stop,
		Stream:        stream,
	}
}

// mapLocalStatus 映射 HTTP 状态到框架错误
func mapLocalStatus(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", errors.ErrProviderUnavailable, string(bodyBytes))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", errors.ErrRateLimited, string(bodyBytes))
	default:
		return fmt.Errorf("local inference error: %s - %s", resp.Status, string(bodyBytes))
	}
}

// mapStopReason 映射停止原因
func mapStopReason(resp completionResponse) string {
	if resp.StoppedLimit {
		return "length"
	}
	return "stop"
}

// compile-time interface check
var _ Provider = (*LocalClient)(nil)
var _ Embedder = (*LocalClient)(nil)
