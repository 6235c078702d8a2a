package chat

// StreamEvent 流式响应事件
//
// 显式标签联合：调试事件最多出现一次且在所有 token 事件之前，
// 是否产生调试事件在调用时决定，不混入普通片段。
type StreamEvent interface {
	isStreamEvent()
}

// DebugEvent 携带提示装配调试信息的事件
type DebugEvent struct {
	// Debug 调试信息
	Debug *PromptDebug
}

func (DebugEvent) isStreamEvent() {}

// TokenEvent 携带一个生成片段的事件
type TokenEvent struct {
	// Token 内容片段
	Token string
}

func (TokenEvent) isStreamEvent() {}
