package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/blacksky-llc/maurice-go/pkg/agent"
	"github.com/blacksky-llc/maurice-go/pkg/core/llm"
	"github.com/blacksky-llc/maurice-go/pkg/core/message"
	"github.com/blacksky-llc/maurice-go/pkg/otel"
	"github.com/blacksky-llc/maurice-go/pkg/rag"
)

// localRuntime 本地后端暴露的运行时属性
//
// 只有本地客户端实现；Stats 用运行时断言探测。
type localRuntime interface {
	ContextSize() int
	GPULayers() int
}

// ChatRequest 一次对话请求
type ChatRequest struct {
	// Message 用户消息
	Message string
	// UserContext 用户档案上下文
	UserContext *UserContext
	// Matches 身份验证候选
	Matches []CandidateMatch
	// PageViews 最近页面浏览记录
	PageViews []string
	// AgentData Agent 平台情报
	AgentData *agent.Intelligence
	// AdminMode 管理模式
	AdminMode bool
	// UserID 用户标识
	UserID string
}

// ChatResult 一次对话的结果
type ChatResult struct {
	// Content 助手回复
	Content string
	// Sources 检索命中的来源
	Sources []string
	// TokenUsage Token 使用统计
	TokenUsage message.TokenUsage
	// Debug 调试信息（调试开启时非 nil）
	Debug *PromptDebug
}

// Stats 对话状态统计
type Stats struct {
	// HistoryTurns 当前历史轮数
	HistoryTurns int `json:"history_turns"`
	// MaxHistoryTurns 历史轮数上限
	MaxHistoryTurns int `json:"max_history_turns"`
	// Backend 后端名称
	Backend string `json:"backend"`
	// Model 模型名称
	Model string `json:"model"`
	// ContextSize 上下文窗口（仅本地后端）
	ContextSize int `json:"context_size,omitempty"`
	// GPULayers GPU 加速层数（仅本地后端）
	GPULayers int `json:"gpu_layers,omitempty"`
	// RetrievalEnabled 是否启用检索
	RetrievalEnabled bool `json:"retrieval_enabled"`
	// IndexedChunks 索引中的分块数
	IndexedChunks int `json:"indexed_chunks,omitempty"`
	// IndexedDocuments 索引中的文档数
	IndexedDocuments int `json:"indexed_documents,omitempty"`
}

// Chatbot 对话门面
//
// 组合提示装配器与推理后端，持有进程内的对话历史。
// 单个请求的失败不污染共享状态：历史只在成功后追加。
type Chatbot struct {
	provider llm.Provider
	builder  *PromptBuilder
	store    *rag.DocumentStore
	params   llm.Params
	debug    bool
	logger   otel.Logger
	metrics  otel.Metrics

	mu      sync.Mutex
	history []message.Turn
}

// ChatbotOption 配置对话门面
type ChatbotOption func(*Chatbot)

// WithDocumentStore 启用检索（同时接入装配器和统计）
func WithDocumentStore(store *rag.DocumentStore) ChatbotOption {
	return func(c *Chatbot) {
		c.store = store
	}
}

// WithDebug 在每次请求中附带提示装配调试信息
func WithDebug(debug bool) ChatbotOption {
	return func(c *Chatbot) {
		c.debug = debug
	}
}

// WithChatbotLogger 设置日志器
func WithChatbotLogger(logger otel.Logger) ChatbotOption {
	return func(c *Chatbot) {
		c.logger = logger
	}
}

// WithChatbotMetrics 设置指标收集器
func WithChatbotMetrics(metrics otel.Metrics) ChatbotOption {
	return func(c *Chatbot) {
		c.metrics = metrics
	}
}

// NewChatbot 创建对话门面
func NewChatbot(provider llm.Provider, builder *PromptBuilder, opts ...ChatbotOption) *Chatbot {
	c := &Chatbot{
		provider: provider,
		builder:  builder,
		params: llm.Params{
			MaxTokens:     400,
			Temperature:   0.3,
			TopP:          0.9,
			RepeatPenalty: 1.1,
			Stop:          message.PromptStops(),
		},
		logger:  otel.NewNoopLogger(),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithParams 设置采样参数
func WithParams(params llm.Params) ChatbotOption {
	return func(c *Chatbot) {
		if len(params.Stop) == 0 {
			params.Stop = message.PromptStops()
		}
		c.params = params
	}
}

// Load 准备后端与检索存储
//
// 任一失败都是致命的，调用方应中止启动。
func (c *Chatbot) Load(ctx context.Context) error {
	if err := c.provider.Load(ctx); err != nil {
		return err
	}

	if c.store != nil {
		if err := c.store.Initialize(ctx); err != nil {
			return err
		}
	}

	c.logger.Info("chatbot ready",
		"backend", c.provider.Name(),
		"model", c.provider.Model(),
		"retrieval", c.store != nil)
	return nil
}

// Chat 生成一次回复（非流式）
func (c *Chatbot) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	startTime := time.Now()

	built, err := c.buildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.provider.Generate(ctx, built.Prompt, c.params)
	c.recordRequest(ctx, err, time.Since(startTime))
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(resp.Content)
	c.appendTurn(req.Message, content)

	return &ChatResult{
		Content:    content,
		Sources:    built.Sources,
		TokenUsage: resp.TokenUsage,
		Debug:      built.Debug,
	}, nil
}

// ChatStream 生成一次回复（流式）
//
// 调试开启时第一个事件是 DebugEvent，之后全部为 TokenEvent。
// 片段按生成顺序交付，拼接结果与非流式调用一致。
// 流成功结束后才把这一轮写入历史。
func (c *Chatbot) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamEvent, <-chan error) {
	eventCh := make(chan StreamEvent)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		startTime := time.Now()

		built, err := c.buildPrompt(ctx, req)
		if err != nil {
			errCh <- err
			return
		}

		if built.Debug != nil {
			select {
			case eventCh <- DebugEvent{Debug: built.Debug}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}

		chunkCh, streamErrCh := c.provider.GenerateStream(ctx, built.Prompt, c.params)

		var full strings.Builder
		for chunk := range chunkCh {
			if chunk.Content == "" {
				continue
			}
			full.WriteString(chunk.Content)

			select {
			case eventCh <- TokenEvent{Token: chunk.Content}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}

		if err := <-streamErrCh; err != nil {
			c.recordRequest(ctx, err, time.Since(startTime))
			errCh <- err
			return
		}

		c.recordRequest(ctx, nil, time.Since(startTime))
		c.appendTurn(req.Message, strings.TrimSpace(full.String()))
	}()

	return eventCh, errCh
}

// Stats 返回当前状态统计
func (c *Chatbot) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	historyTurns := len(c.history)
	c.mu.Unlock()

	stats := Stats{
		HistoryTurns:     historyTurns,
		MaxHistoryTurns:  c.builder.MaxHistoryTurns(),
		Backend:          c.provider.Name(),
		Model:            c.provider.Model(),
		RetrievalEnabled: c.store != nil,
	}

	if local, ok := c.provider.(localRuntime); ok {
		stats.ContextSize = local.ContextSize()
		stats.GPULayers = local.GPULayers()
	}

	if c.store != nil {
		if count, err := c.store.Count(ctx); err == nil {
			stats.IndexedChunks = count
		}
		if sources, err := c.store.Sources(ctx); err == nil {
			stats.IndexedDocuments = len(sources)
		}
	}

	return stats
}

// History 返回对话历史的副本
func (c *Chatbot) History() []message.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]message.Turn, len(c.history))
	copy(history, c.history)
	return history
}

// ClearHistory 清空对话历史
func (c *Chatbot) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// Close 关闭后端连接
func (c *Chatbot) Close() error {
	return c.provider.Close()
}

// buildPrompt 用当前历史装配提示
func (c *Chatbot) buildPrompt(ctx context.Context, req ChatRequest) (*BuiltPrompt, error) {
	c.mu.Lock()
	history := make([]message.Turn, len(c.history))
	copy(history, c.history)
	c.mu.Unlock()

	built, err := c.builder.Build(ctx, BuildInput{
		UserMessage: req.Message,
		History:     history,
		UserContext: req.UserContext,
		Matches:     req.Matches,
		PageViews:   req.PageViews,
		AgentData:   req.AgentData,
		AdminMode:   req.AdminMode,
		UserID:      req.UserID,
		Debug:       c.debug,
	})
	if err != nil {
		return nil, err
	}

	if built.Debug != nil {
		c.metrics.Histogram(otel.MetricChatHistoryTurns).Record(ctx, float64(built.Debug.HistoryTurns))
	}

	return built, nil
}

// appendTurn 把完成的一轮写入历史
func (c *Chatbot) appendTurn(user, assistant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, message.Turn{User: user, Assistant: assistant})
}

// recordRequest 记录一次对话请求的指标
func (c *Chatbot) recordRequest(ctx context.Context, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
		c.metrics.Counter(otel.MetricChatErrors).Add(ctx, 1)
	}

	c.metrics.Counter(otel.MetricChatRequests).Add(ctx, 1,
		otel.NewAttr("backend", c.provider.Name()),
		otel.NewAttr("status", status),
	)
	c.metrics.Histogram(otel.MetricChatRequestDuration).Record(ctx, duration.Seconds()*1000,
		otel.NewAttr("backend", c.provider.Name()),
	)
}
