package message

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenUsage 表示 Token 使用统计
type TokenUsage struct {
	// PromptTokens 输入 Token 数
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens 输出 Token 数
	CompletionTokens int `json:"completion_tokens"`
	// TotalTokens 总 Token 数
	TotalTokens int `json:"total_tokens"`
}

// Add 累加 Token 使用量
func (t *TokenUsage) Add(other TokenUsage) {
	t.PromptTokens += other.PromptTokens
	t.CompletionTokens += other.CompletionTokens
	t.TotalTokens += other.TotalTokens
}

// IsEmpty 检查是否为空
func (t *TokenUsage) IsEmpty() bool {
	return t.TotalTokens == 0
}

// TokenCounter 基于 tiktoken 的精确 Token 计数器
//
// 提供商用它记录提示的实际 Token 数。调试输出中的粗略估计
// 使用 EstimateTokens，两者用途不同。
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter 创建 Token 计数器
//
// encodingName 为空时使用 cl100k_base。
func NewTokenCounter(encodingName string) (*TokenCounter, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{encoding: enc}, nil
}

// Count 返回文本的 Token 数
func (c *TokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateTokens 粗略估计文本的 Token 数（字符数除以 4）
//
// 只用于调试展示，不是分词器调用。
func EstimateTokens(text string) int {
	return len(text) / 4
}
