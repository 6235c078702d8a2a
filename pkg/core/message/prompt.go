package message

import (
	"fmt"
	"strings"
)

// 扁平化提示格式的定界符（Llama 3.1 头部标记）
//
// 这些标记是模型保留词表的一部分，不会出现在自然文本中，
// 因此编码无需转义层。
const (
	// HeaderStart 角色头起始标记
	HeaderStart = "<|start_header_id|>"
	// HeaderEnd 角色头结束标记
	HeaderEnd = "<|end_header_id|>"
	// EndOfTurn 轮次结束标记
	EndOfTurn = "<|eot_id|>"
)

// PromptFormatVersion 扁平化提示格式的版本标识
//
// 编码方（提示装配）与解码方（远端格式翻译器）共享此契约。
// 任何格式变更必须同时更新双方并提升版本号。
const PromptFormatVersion = "llama3.1-header/1"

// EncodePrompt 将系统提示、历史轮次和当前用户消息编码为扁平化提示
//
// 输出以一个空的 assistant 头结尾，作为模型生成的起点。
// 解码逆操作见 ParsePrompt；两者满足往返等价。
func EncodePrompt(system string, turns []Turn, userMessage string) string {
	var b strings.Builder

	writeBlock(&b, RoleSystem, system)
	for _, t := range turns {
		writeBlock(&b, RoleUser, t.User)
		writeBlock(&b, RoleAssistant, t.Assistant)
	}
	writeBlock(&b, RoleUser, userMessage)

	// 生成起点：assistant 头后不带内容和结束标记
	b.WriteString(HeaderStart)
	b.WriteString(string(RoleAssistant))
	b.WriteString(HeaderEnd)
	b.WriteString("\n\n")

	return b.String()
}

// writeBlock 写入一个完整的角色块
func writeBlock(b *strings.Builder, role Role, content string) {
	b.WriteString(HeaderStart)
	b.WriteString(string(role))
	b.WriteString(HeaderEnd)
	b.WriteString("\n\n")
	b.WriteString(content)
	b.WriteString(EndOfTurn)
}

// ParsePrompt 将扁平化提示解码为结构化消息列表
//
// 单次前向扫描：先读取 system 块，随后 user 与 assistant 块交替出现。
// 末尾空内容的 assistant 头是生成起点，终止扫描且不产生消息。
// 不符合约定的输入属于调用方编程错误，返回 ErrMalformedPrompt。
func ParsePrompt(prompt string) ([]Message, error) {
	var msgs []Message
	pos := 0
	expect := RoleSystem

	for {
		start := strings.Index(prompt[pos:], HeaderStart)
		if start < 0 {
			break
		}
		pos += start + len(HeaderStart)

		end := strings.Index(prompt[pos:], HeaderEnd)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated role header", ErrMalformedPrompt)
		}
		role := Role(prompt[pos : pos+end])
		pos += end + len(HeaderEnd)

		// 内容截止到下一个轮次结束标记；生成起点没有该标记
		var content string
		if stop := strings.Index(prompt[pos:], EndOfTurn); stop >= 0 {
			content = prompt[pos : pos+stop]
			pos += stop + len(EndOfTurn)
		} else {
			content = prompt[pos:]
			pos = len(prompt)
		}
		content = strings.TrimSpace(content)

		if role != expect {
			return nil, fmt.Errorf("%w: expected %q header, got %q", ErrMalformedPrompt, expect, role)
		}

		switch role {
		case RoleSystem:
			msgs = append(msgs, NewSystemMessage(content))
			expect = RoleUser
		case RoleUser:
			msgs = append(msgs, NewUserMessage(content))
			expect = RoleAssistant
		case RoleAssistant:
			if content == "" {
				return msgs, nil
			}
			msgs = append(msgs, NewAssistantMessage(content))
			expect = RoleUser
		}
	}

	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: no role headers found", ErrMalformedPrompt)
	}

	return msgs, nil
}

// PromptStops 返回扁平化格式对应的本地推理停止序列
//
// 远端提供商自行管理对话边界，不应转发这些序列。
func PromptStops() []string {
	return []string{EndOfTurn, HeaderStart}
}
