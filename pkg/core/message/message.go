// Package message 定义对话消息类型与扁平化提示格式
package message

// Role 表示消息的角色类型
type Role string

const (
	// RoleSystem 系统消息
	RoleSystem Role = "system"
	// RoleUser 用户消息
	RoleUser Role = "user"
	// RoleAssistant AI 助手消息
	RoleAssistant Role = "assistant"
)

// IsValid 检查 Role 是否为有效值
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message 表示对话中的一条消息
type Message struct {
	// Role 消息角色
	Role Role `json:"role"`
	// Content 消息内容
	Content string `json:"content"`
}

// NewMessage 创建新消息
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewSystemMessage 创建系统消息
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage 创建用户消息
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage 创建助手消息
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Validate 验证消息是否有效
func (m *Message) Validate() error {
	if !m.Role.IsValid() {
		return ErrInvalidRole
	}
	if m.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// Turn 表示一轮完整的用户/助手对话
type Turn struct {
	// User 用户输入
	User string `json:"user"`
	// Assistant 助手回复
	Assistant string `json:"assistant"`
}
