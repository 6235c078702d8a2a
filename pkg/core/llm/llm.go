// Package llm 提供 LLM 推理后端的统一接口
package llm

import (
	"context"

	"github.com/blacksky-llc/maurice-go/pkg/core/message"
)

// Provider 定义推理后端接口
//
// 统一本地推理（llama.cpp server）与云端推理（Together）的调用方式。
// 输入是装配好的扁平化提示文本，后端自行决定是否需要结构化转换。
type Provider interface {
	// Load 准备后端
	//
	// 本地后端确认模型服务可用并缓存运行时属性；
	// 云端后端校验凭证。失败时后端不可用，调用方应中止。
	Load(ctx context.Context) error

	// Generate 生成响应（非流式）
	//
	// 参数:
	//   - ctx: 上下文
	//   - prompt: 扁平化提示文本
	//   - params: 采样参数
	//
	// 返回:
	//   - Response: 响应结果
	//   - error: 调用错误
	Generate(ctx context.Context, prompt string, params Params) (Response, error)

	// GenerateStream 生成响应（流式）
	//
	// 返回两个 channel：
	//   - <-chan StreamChunk: 流式响应块
	//   - <-chan error: 错误通道（最多一个错误）
	//
	// 对同一后端，流式块按序拼接等于非流式结果。
	// 生产者协程在上下文取消或流结束时退出，无其他后台工作。
	GenerateStream(ctx context.Context, prompt string, params Params) (<-chan StreamChunk, <-chan error)

	// Ready 返回后端是否已就绪
	Ready() bool

	// Name 返回后端名称
	Name() string

	// Model 返回当前模型名称
	Model() string

	// Close 关闭客户端连接
	Close() error
}

// Embedder 定义文本嵌入接口
type Embedder interface {
	// Embed 生成文本嵌入向量
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Params 生成采样参数
type Params struct {
	// MaxTokens 最大输出 token
	MaxTokens int `json:"max_tokens"`
	// Temperature 采样温度
	Temperature float64 `json:"temperature"`
	// TopP 核采样参数
	TopP float64 `json:"top_p"`
	// RepeatPenalty 重复惩罚（乘性，1.0 为不惩罚）
	//
	// 本地后端原样转发；云端后端换算为加性 frequency_penalty。
	RepeatPenalty float64 `json:"repeat_penalty"`
	// Stop 停止序列
	//
	// 只对本地后端生效；云端后端自行管理对话边界，不转发。
	Stop []string `json:"stop,omitempty"`
}

// Response LLM 响应
type Response struct {
	// Content 响应文本内容
	Content string `json:"content"`
	// FinishReason 结束原因
	// 值: "stop", "length"
	FinishReason string `json:"finish_reason"`
	// TokenUsage Token 使用统计
	TokenUsage message.TokenUsage `json:"token_usage"`
}

// StreamChunk 流式响应块
type StreamChunk struct {
	// Content 内容片段
	Content string `json:"content"`
	// Done 是否完成
	Done bool `json:"done"`
	// FinishReason 结束原因（当 Done=true 时）
	FinishReason string `json:"finish_reason,omitempty"`
	// TokenUsage Token 使用统计（当 Done=true 时）
	TokenUsage *message.TokenUsage `json:"token_usage,omitempty"`
}
