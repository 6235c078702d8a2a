package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Chunker 边界感知的重叠分块器
//
// 固定窗口切分，窗口尾部向前回退到最近的句号或换行处断开，
// 相邻分块按配置的重叠量衔接。输入先剥离 Markdown 标记。
type Chunker struct {
	// ChunkSize 目标块大小（字符）
	ChunkSize int
	// ChunkOverlap 相邻块重叠大小（字符）
	ChunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: overlap,
	}
}

// Chunk 将文档切分为带确定性 ID 的分块
//
// 空白输入返回空切片。同一输入总是产生相同的分块和 ID，
// 重新入库因此是幂等的。
func (c *Chunker) Chunk(content, source string) []DocumentChunk {
	text := stripMarkup(content)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []DocumentChunk
	start := 0

	for start < len(text) {
		end := start + c.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			// 硬切不落在多字节字符中间，向后扩到字符起始
			for end < len(text) && !utf8.RuneStart(text[end]) {
				end++
			}
		}
		if end < len(text) {
			// 在窗口后半段寻找句子或行边界
			window := text[start:end]
			breakPoint := strings.LastIndexByte(window, '.')
			if nl := strings.LastIndexByte(window, '\n'); nl > breakPoint {
				breakPoint = nl
			}
			if breakPoint > c.ChunkSize/2 {
				end = start + breakPoint + 1
			}
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			idx := len(chunks)
			chunks = append(chunks, DocumentChunk{
				ID:      chunkID(source, idx),
				Source:  source,
				Content: piece,
				Index:   idx,
			})
		}

		if end >= len(text) {
			break
		}
		// 边界回退可能让 end 落在 start+ChunkOverlap 之前，
		// 窗口起点必须严格前进，否则切分不会终止
		if next := end - c.ChunkOverlap; next > start {
			start = next
		} else {
			start = end
		}
		for start < len(text) && !utf8.RuneStart(text[start]) {
			start++
		}
	}

	return chunks
}

// chunkID 生成确定性分块 ID
func chunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}

// stripMarkup 剥离 Markdown 标记
//
// 去掉标题前缀和水平分割线，保留正文。分块边界因此
// 不会落在标记字符中间。
func stripMarkup(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// 水平分割线整行丢弃
		if trimmed != "" && strings.Trim(trimmed, "-") == "" && len(trimmed) >= 3 {
			continue
		}

		// 标题只去掉前缀标记
		if strings.HasPrefix(trimmed, "#") {
			stripped := strings.TrimLeft(trimmed, "#")
			out = append(out, strings.TrimSpace(stripped))
			continue
		}

		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
