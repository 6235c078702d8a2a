package otel

import (
	"context"
	"time"

	"github.com/blacksky-llc/maurice-go/pkg/core/llm"
	"go.opentelemetry.io/otel/attribute"
)

// TracedProvider 带追踪的 LLM 提供商包装器
//
// 包装任意 llm.Provider，为每次生成调用记录 Span 与指标。
// 透传行为不变，观测失败不影响调用结果。
type TracedProvider struct {
	provider llm.Provider
	tracer   Tracer
	metrics  Metrics
}

// TracedProviderOption 配置包装器
type TracedProviderOption func(*TracedProvider)

// WithTracedProviderTracer 设置追踪器
func WithTracedProviderTracer(tracer Tracer) TracedProviderOption {
	return func(p *TracedProvider) {
		p.tracer = tracer
	}
}

// WithTracedProviderMetrics 设置指标收集器
func WithTracedProviderMetrics(metrics Metrics) TracedProviderOption {
	return func(p *TracedProvider) {
		p.metrics = metrics
	}
}

// NewTracedProvider 创建带追踪的提供商包装器
func NewTracedProvider(provider llm.Provider, opts ...TracedProviderOption) *TracedProvider {
	tp := &TracedProvider{
		provider: provider,
		tracer:   NewNoopTracer(),
		metrics:  NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(tp)
	}

	return tp
}

// Load 准备底层后端
func (p *TracedProvider) Load(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "llm.load",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			LLMProvider(p.provider.Name()),
			LLMModel(p.provider.Model()),
		),
	)
	defer span.End()

	if err := p.provider.Load(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		return err
	}

	span.SetStatus(StatusOK, "")
	return nil
}

// Generate 生成响应并记录追踪信息
func (p *TracedProvider) Generate(ctx context.Context, prompt string, params llm.Params) (llm.Response, error) {
	ctx, span := p.tracer.Start(ctx, "llm.generate",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			LLMProvider(p.provider.Name()),
			LLMModel(p.provider.Model()),
			LLMStream(false),
			attribute.Int(AttrLLMMaxTokens, params.MaxTokens),
		),
	)
	defer span.End()

	startTime := time.Now()
	resp, err := p.provider.Generate(ctx, prompt, params)
	duration := time.Since(startTime)

	p.recordMetrics(ctx, resp, err, duration)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		return resp, err
	}

	span.SetAttributes(LLMTokens(resp.TokenUsage.PromptTokens, resp.TokenUsage.CompletionTokens)...)
	span.AddEvent("llm.response",
		attribute.String("finish_reason", resp.FinishReason),
	)
	span.SetStatus(StatusOK, "")

	return resp, nil
}

// GenerateStream 流式生成并记录追踪信息
//
// Span 在流结束（或出错）时结束，指标按最后一个块的 Token 统计记录。
func (p *TracedProvider) GenerateStream(ctx context.Context, prompt string, params llm.Params) (<-chan llm.StreamChunk, <-chan error) {
	ctx, span := p.tracer.Start(ctx, "llm.generate_stream",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			LLMProvider(p.provider.Name()),
			LLMModel(p.provider.Model()),
			LLMStream(true),
			attribute.Int(AttrLLMMaxTokens, params.MaxTokens),
		),
	)

	chunkCh, errCh := p.provider.GenerateStream(ctx, prompt, params)

	tracedChunkCh := make(chan llm.StreamChunk)
	tracedErrCh := make(chan error, 1)

	go func() {
		defer close(tracedChunkCh)
		defer close(tracedErrCh)
		defer span.End()

		startTime := time.Now()
		var lastChunk llm.StreamChunk

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(StatusError, err.Error())
			p.metrics.Counter(MetricLLMRequests).Add(ctx, 1,
				NewAttr("provider", p.provider.Name()),
				NewAttr("model", p.provider.Model()),
				NewAttr("status", "error"),
			)
			p.metrics.Counter(MetricLLMErrors).Add(ctx, 1,
				NewAttr("provider", p.provider.Name()),
				NewAttr("model", p.provider.Model()),
			)
			tracedErrCh <- err
		}

		for {
			select {
			case chunk, ok := <-chunkCh:
				if !ok {
					// 块通道先关闭时错误通道可能已有错误等待，
					// 必须先排空再判定成功。
					if err := <-errCh; err != nil {
						fail(err)
						return
					}
					duration := time.Since(startTime)
					if lastChunk.TokenUsage != nil {
						span.SetAttributes(LLMTokens(
							lastChunk.TokenUsage.PromptTokens,
							lastChunk.TokenUsage.CompletionTokens,
						)...)
						p.metrics.Counter(MetricLLMTokensPrompt).Add(ctx, int64(lastChunk.TokenUsage.PromptTokens),
							NewAttr("provider", p.provider.Name()),
							NewAttr("model", p.provider.Model()),
						)
						p.metrics.Counter(MetricLLMTokensCompletion).Add(ctx, int64(lastChunk.TokenUsage.CompletionTokens),
							NewAttr("provider", p.provider.Name()),
							NewAttr("model", p.provider.Model()),
						)
					}
					p.metrics.Counter(MetricLLMRequests).Add(ctx, 1,
						NewAttr("provider", p.provider.Name()),
						NewAttr("model", p.provider.Model()),
						NewAttr("status", "success"),
					)
					p.metrics.Histogram(MetricLLMRequestDuration).Record(ctx, duration.Seconds()*1000,
						NewAttr("provider", p.provider.Name()),
						NewAttr("model", p.provider.Model()),
					)
					span.SetStatus(StatusOK, "")
					return
				}
				lastChunk = chunk
				tracedChunkCh <- chunk

			case err, ok := <-errCh:
				if ok && err != nil {
					fail(err)
					return
				}
			}
		}
	}()

	return tracedChunkCh, tracedErrCh
}

// Ready 返回底层后端是否已就绪
func (p *TracedProvider) Ready() bool {
	return p.provider.Ready()
}

// Name 返回底层后端名称
func (p *TracedProvider) Name() string {
	return p.provider.Name()
}

// Model 返回底层模型名称
func (p *TracedProvider) Model() string {
	return p.provider.Model()
}

// Close 关闭底层后端
func (p *TracedProvider) Close() error {
	return p.provider.Close()
}

// recordMetrics 记录一次非流式调用的指标
func (p *TracedProvider) recordMetrics(ctx context.Context, resp llm.Response, err error, duration time.Duration) {
	if err != nil {
		p.metrics.Counter(MetricLLMRequests).Add(ctx, 1,
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
			NewAttr("status", "error"),
		)
		p.metrics.Counter(MetricLLMErrors).Add(ctx, 1,
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
		)
	} else {
		p.metrics.Counter(MetricLLMRequests).Add(ctx, 1,
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
			NewAttr("status", "success"),
		)
		p.metrics.Counter(MetricLLMTokensPrompt).Add(ctx, int64(resp.TokenUsage.PromptTokens),
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
		)
		p.metrics.Counter(MetricLLMTokensCompletion).Add(ctx, int64(resp.TokenUsage.CompletionTokens),
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
		)
	}

	p.metrics.Histogram(MetricLLMRequestDuration).Record(ctx, duration.Seconds()*1000,
		NewAttr("provider", p.provider.Name()),
		NewAttr("model", p.provider.Model()),
	)
}

// TracedEmbedder 带追踪的嵌入器包装器
type TracedEmbedder struct {
	embedder llm.Embedder
	tracer   Tracer
	metrics  Metrics
}

// NewTracedEmbedder 创建带追踪的嵌入器包装器
func NewTracedEmbedder(embedder llm.Embedder, tracer Tracer, metrics Metrics) *TracedEmbedder {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	return &TracedEmbedder{
		embedder: embedder,
		tracer:   tracer,
		metrics:  metrics,
	}
}

// Embed 生成嵌入向量并记录追踪信息
func (e *TracedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := e.tracer.Start(ctx, "llm.embed",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			attribute.Int("input_count", len(texts)),
		),
	)
	defer span.End()

	startTime := time.Now()
	result, err := e.embedder.Embed(ctx, texts)
	duration := time.Since(startTime)

	e.metrics.Histogram(MetricLLMRequestDuration).Record(ctx, duration.Seconds()*1000,
		NewAttr("operation", "embed"),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		e.metrics.Counter(MetricLLMErrors).Add(ctx, 1,
			NewAttr("operation", "embed"),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("output_count", len(result)))
	span.SetStatus(StatusOK, "")
	return result, nil
}

// compile-time interface check
var _ llm.Provider = (*TracedProvider)(nil)
var _ llm.Embedder = (*TracedEmbedder)(nil)
