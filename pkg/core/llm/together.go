package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	coreerrors "github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/core/message"
	openai "github.com/sashabaranov/go-openai"
)

// togetherBaseURL Together 的 OpenAI 兼容端点
const togetherBaseURL = "https://api.together.xyz/v1"

// TogetherClient Together 云端推理客户端
//
// Together 接收结构化消息而非扁平化提示，因此本客户端内置格式翻译：
// 发送前用 message.ParsePrompt 将提示还原为消息列表。
// 重复惩罚由乘性 repeat_penalty 换算为加性 frequency_penalty，
// 停止序列不转发（云端自行管理对话边界）。
type TogetherClient struct {
	client  *openai.Client
	options *Options

	counterOnce sync.Once
	counter     *message.TokenCounter

	mu    sync.RWMutex
	ready bool
}

// NewTogetherClient 创建 Together 客户端
func NewTogetherClient(opts ...Option) (*TogetherClient, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.APIKey == "" {
		return nil, coreerrors.ErrInvalidAPIKey
	}
	if options.Model == "" {
		options.Model = "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo"
	}
	if options.EmbeddingModel == "" {
		options.EmbeddingModel = "togethercomputer/m2-bert-80M-8k-retrieval"
	}
	if options.BaseURL == "" {
		options.BaseURL = togetherBaseURL
	}

	config := openai.DefaultConfig(options.APIKey)
	config.BaseURL = options.BaseURL
	if options.HTTPClient != nil {
		config.HTTPClient = options.HTTPClient
	}

	return &TogetherClient{
		client:  openai.NewClientWithConfig(config),
		options: options,
	}, nil
}

// Load 准备后端
//
// 云端服务无本地状态，这里只标记就绪；凭证错误在首次请求时暴露。
func (c *TogetherClient) Load(ctx context.Context) error {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

// Generate 生成响应（非流式）
func (c *TogetherClient) Generate(ctx context.Context, prompt string, params Params) (Response, error) {
	chatReq, err := c.buildChatRequest(prompt, params)
	if err != nil {
		return Response{}, err
	}

	var resp openai.ChatCompletionResponse

	err = retry(ctx, c.options.MaxRetries, c.options.RetryDelay, func() error {
		var reqErr error
		resp, reqErr = c.client.CreateChatCompletion(ctx, chatReq)
		return mapTogetherError(reqErr)
	})
	if err != nil {
		return Response{}, err
	}

	if len(resp.Choices) == 0 {
		return Response{}, coreerrors.ErrInvalidResponse
	}

	choice := resp.Choices[0]
	return Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		TokenUsage: message.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateStream 生成响应（流式）
func (c *TogetherClient) GenerateStream(ctx context.Context, prompt string, params Params) (<-chan StreamChunk, <-chan error) {
	chunkCh := make(chan StreamChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)

		chatReq, err := c.buildChatRequest(prompt, params)
		if err != nil {
			errCh <- err
			return
		}
		chatReq.Stream = true

		stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			errCh <- mapTogetherError(err)
			return
		}
		defer stream.Close()

		var completion []byte

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				errCh <- mapTogetherError(err)
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			chunk := StreamChunk{
				Content: choice.Delta.Content,
			}
			completion = append(completion, choice.Delta.Content...)

			if choice.FinishReason != "" {
				chunk.Done = true
				chunk.FinishReason = string(choice.FinishReason)
				// 流式响应不携带用量，终块用本地分词器补齐
				chunk.TokenUsage = c.countUsage(prompt, string(completion))
			}

			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}

			if chunk.Done {
				return
			}
		}
	}()

	return chunkCh, errCh
}

// Embed 生成文本嵌入向量
func (c *TogetherClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.options.EmbeddingModel),
	}

	var resp openai.EmbeddingResponse

	err := retry(ctx, c.options.MaxRetries, c.options.RetryDelay, func() error {
		var reqErr error
		resp, reqErr = c.client.CreateEmbeddings(ctx, req)
		return mapTogetherError(reqErr)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrEmbeddingFailed, err)
	}

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		result[i] = data.Embedding
	}

	return result, nil
}

// Ready 返回后端是否已就绪
func (c *TogetherClient) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Name 返回后端名称
func (c *TogetherClient) Name() string {
	return "together"
}

// Model 返回当前模型名称
func (c *TogetherClient) Model() string {
	return c.options.Model
}

// Close 关闭客户端连接
func (c *TogetherClient) Close() error {
	return nil
}

// buildChatRequest 将扁平化提示翻译为结构化请求
func (c *TogetherClient) buildChatRequest(prompt string, params Params) (openai.ChatCompletionRequest, error) {
	msgs, err := message.ParsePrompt(prompt)
	if err != nil {
		// 不符合格式约定属于调用方编程错误，原样上抛
		return openai.ChatCompletionRequest{}, err
	}

	chatMsgs := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		chatMsgs[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       c.options.Model,
		Messages:    chatMsgs,
		MaxTokens:   params.MaxTokens,
		Temperature: float32(params.Temperature),
		TopP:        float32(params.TopP),
		// 乘性惩罚换算为加性惩罚：1.0（不惩罚）对应 0.0
		FrequencyPenalty: float32(params.RepeatPenalty - 1.0),
	}, nil
}

// countUsage 用本地分词器统计一次流式调用的 Token 用量
//
// 分词器初始化失败时返回 nil，调用方按无用量处理。
func (c *TogetherClient) countUsage(prompt, completion string) *message.TokenUsage {
	c.counterOnce.Do(func() {
		c.counter, _ = message.NewTokenCounter("")
	})
	if c.counter == nil {
		return nil
	}

	promptTokens := c.counter.Count(prompt)
	completionTokens := c.counter.Count(completion)
	return &message.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// mapTogetherError 映射 API 错误到框架错误
func mapTogetherError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return coreerrors.WrapError(err, "together request failed")
	}

	switch apiErr.HTTPStatusCode {
	case 401:
		return coreerrors.ErrInvalidAPIKey
	case 429:
		return coreerrors.ErrRateLimited
	case 500, 502, 503:
		return coreerrors.ErrProviderUnavailable
	default:
		return fmt.Errorf("together error (code=%d): %w", apiErr.HTTPStatusCode, err)
	}
}

// compile-time interface check
var _ Provider = (*TogetherClient)(nil)
var _ Embedder = (*TogetherClient)(nil)
