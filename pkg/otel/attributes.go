package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// LLM 相关属性
	AttrLLMProvider         = "llm.provider"
	AttrLLMModel            = "llm.model"
	AttrLLMMaxTokens        = "llm.max_tokens"
	AttrLLMPromptTokens     = "llm.prompt_tokens"
	AttrLLMCompletionTokens = "llm.completion_tokens"
	AttrLLMStream           = "llm.stream"

	// 检索相关属性
	AttrRetrievalTopK        = "retrieval.top_k"
	AttrRetrievalResultCount = "retrieval.result_count"
	AttrRetrievalSource      = "retrieval.source"

	// Chat 相关属性
	AttrChatAdminMode    = "chat.admin_mode"
	AttrChatHistoryTurns = "chat.history_turns"
	AttrChatUserID       = "chat.user_id"

	// Error 相关属性
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
	AttrErrorRetryable = "error.retryable"
)

// LLMProvider 创建 LLM 提供商属性
func LLMProvider(provider string) attribute.KeyValue {
	return attribute.String(AttrLLMProvider, provider)
}

// LLMModel 创建 LLM 模型属性
func LLMModel(model string) attribute.KeyValue {
	return attribute.String(AttrLLMModel, model)
}

// LLMStream 创建流式标记属性
func LLMStream(stream bool) attribute.KeyValue {
	return attribute.Bool(AttrLLMStream, stream)
}

// LLMTokens 创建 LLM Token 使用属性
func LLMTokens(prompt, completion int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrLLMPromptTokens, prompt),
		attribute.Int(AttrLLMCompletionTokens, completion),
	}
}

// RetrievalTopK 创建检索 top_k 属性
func RetrievalTopK(k int) attribute.KeyValue {
	return attribute.Int(AttrRetrievalTopK, k)
}

// RetrievalResultCount 创建检索结果数属性
func RetrievalResultCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRetrievalResultCount, n)
}

// ChatAdminMode 创建管理模式标记属性
func ChatAdminMode(admin bool) attribute.KeyValue {
	return attribute.Bool(AttrChatAdminMode, admin)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string, retryable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
		attribute.Bool(AttrErrorRetryable, retryable),
	}
}
