package message

import "errors"

// 消息验证相关错误
var (
	// ErrInvalidRole 角色无效
	ErrInvalidRole = errors.New("invalid message role")
	// ErrEmptyContent 内容为空
	ErrEmptyContent = errors.New("empty message content")
	// ErrMalformedPrompt 提示文本不符合扁平化格式约定
	ErrMalformedPrompt = errors.New("malformed prompt")
)
