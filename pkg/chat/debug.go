package chat

import (
	"unicode/utf8"

	"github.com/blacksky-llc/maurice-go/pkg/core/message"
)

// systemPreviewLength 调试预览截取的字符数
const systemPreviewLength = 200

// PromptDebug 提示装配的调试信息
//
// EstimatedTokens 是字符数除以 4 的粗略估计，只用于调试展示，
// 不是分词器调用。精确计数见 message.TokenCounter。
type PromptDebug struct {
	// SystemLength 系统内容字符数
	SystemLength int `json:"system_length"`
	// SystemPreview 系统内容截断预览
	SystemPreview string `json:"system_preview"`
	// SystemContent 完整系统内容
	SystemContent string `json:"system_content"`
	// RetrievalContext 原始检索上下文
	RetrievalContext string `json:"retrieval_context"`
	// RetrievalSources 检索来源列表
	RetrievalSources []string `json:"retrieval_sources"`
	// UserContextBlock 原始用户上下文段
	UserContextBlock string `json:"user_context_block"`
	// AgentBlock 原始 Agent 情报段
	AgentBlock string `json:"agent_block"`
	// HistoryTurns 实际装入提示的历史轮数
	HistoryTurns int `json:"history_turns"`
	// PromptLength 提示总字符数
	PromptLength int `json:"prompt_length"`
	// EstimatedTokens 粗略 Token 估计（字符数 / 4）
	EstimatedTokens int `json:"estimated_tokens"`
}

// newPromptDebug 从装配结果组装调试信息
func newPromptDebug(system, retrievalContext string, retrievalSources []string, userBlock, agentBlock, prompt string, historyTurns int) *PromptDebug {
	preview := system
	if len(preview) > systemPreviewLength {
		// 截断点回退到字符起始，避免切开多字节字符
		cut := systemPreviewLength
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut] + "..."
	}

	return &PromptDebug{
		SystemLength:     len(system),
		SystemPreview:    preview,
		SystemContent:    system,
		RetrievalContext: retrievalContext,
		RetrievalSources: retrievalSources,
		UserContextBlock: userBlock,
		AgentBlock:       agentBlock,
		HistoryTurns:     historyTurns,
		PromptLength:     len(prompt),
		EstimatedTokens:  message.EstimateTokens(prompt),
	}
}
