package chat

import (
	"context"
	"strings"

	"github.com/blacksky-llc/maurice-go/pkg/agent"
	"github.com/blacksky-llc/maurice-go/pkg/core/message"
	"github.com/blacksky-llc/maurice-go/pkg/otel"
	"github.com/blacksky-llc/maurice-go/pkg/rag"
)

// BuildInput 提示装配的输入
//
// 除 UserMessage 外所有字段可选。缺失的数据不渲染对应段落。
type BuildInput struct {
	// UserMessage 当前用户消息
	UserMessage string
	// History 历史轮次（调用方持有，装配只读最近的有界窗口）
	History []message.Turn
	// UserContext 用户档案上下文
	UserContext *UserContext
	// Matches 身份验证候选
	Matches []CandidateMatch
	// PageViews 最近页面浏览记录
	PageViews []string
	// AgentData Agent 平台情报，nil 表示没有数据
	AgentData *agent.Intelligence
	// AdminMode 管理模式（切换人设变体和情报渲染的不对称行为）
	AdminMode bool
	// UserID 用户标识，管理模式下用于读取浏览汇总
	UserID string
	// Debug 是否生成调试信息
	Debug bool
}

// BuiltPrompt 装配结果
type BuiltPrompt struct {
	// Prompt 扁平化提示文本
	Prompt string
	// Sources 检索命中的来源（首次出现顺序去重）
	Sources []string
	// Debug 调试信息（仅 Debug 输入为 true 时非 nil）
	Debug *PromptDebug
}

// PromptBuilder 提示装配器
//
// 按固定顺序把人设、检索上下文、用户上下文、Agent 情报和
// 有界历史装配为一个扁平化提示。检索失败降级为无检索上下文，
// 请求照常进行。
type PromptBuilder struct {
	store           *rag.DocumentStore
	profiles        ProfileStore
	maxHistoryTurns int
	logger          otel.Logger
}

// BuilderOption 配置装配器
type BuilderOption func(*PromptBuilder)

// WithRetrieval 启用检索上下文
func WithRetrieval(store *rag.DocumentStore) BuilderOption {
	return func(b *PromptBuilder) {
		b.store = store
	}
}

// WithProfileStore 设置用户档案存储（管理模式浏览汇总）
func WithProfileStore(profiles ProfileStore) BuilderOption {
	return func(b *PromptBuilder) {
		b.profiles = profiles
	}
}

// WithMaxHistoryTurns 设置提示中保留的最近历史轮数
func WithMaxHistoryTurns(n int) BuilderOption {
	return func(b *PromptBuilder) {
		if n > 0 {
			b.maxHistoryTurns = n
		}
	}
}

// WithBuilderLogger 设置日志器
func WithBuilderLogger(logger otel.Logger) BuilderOption {
	return func(b *PromptBuilder) {
		b.logger = logger
	}
}

// NewPromptBuilder 创建提示装配器
func NewPromptBuilder(opts ...BuilderOption) *PromptBuilder {
	b := &PromptBuilder{
		maxHistoryTurns: 4,
		logger:          otel.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// MaxHistoryTurns 返回历史轮数上限
func (b *PromptBuilder) MaxHistoryTurns() int {
	return b.maxHistoryTurns
}

// Build 装配提示
//
// 装配顺序：人设（管理模式用扩展变体）、检索上下文（索引为空时
// 完全跳过）、用户上下文段、Agent 情报段，合成系统内容；随后是
// 最近 N 轮历史和当前用户消息，以空 assistant 头收尾。
func (b *PromptBuilder) Build(ctx context.Context, in BuildInput) (*BuiltPrompt, error) {
	persona := Persona(in.AdminMode)

	retrievalContext, sources := b.retrieve(ctx, in.UserMessage)

	var browsing *BrowsingSummary
	if in.AdminMode && in.UserID != "" && b.profiles != nil {
		summary, err := b.profiles.BrowsingSummary(ctx, in.UserID)
		if err != nil {
			b.logger.Warn("browsing summary unavailable", "user_id", in.UserID, "error", err)
		} else {
			browsing = summary
		}
	}

	userBlock := buildUserContextBlock(in.UserContext, in.Matches, in.PageViews, browsing)
	agentBlock := buildIntelligenceBlock(in.AgentData, in.AdminMode)

	sections := []string{persona}
	if retrievalContext != "" {
		sections = append(sections, retrievalContext)
	}
	if userBlock != "" {
		sections = append(sections, userBlock)
	}
	if agentBlock != "" {
		sections = append(sections, agentBlock)
	}
	system := strings.Join(sections, "\n\n")

	history := boundHistory(in.History, b.maxHistoryTurns)
	prompt := message.EncodePrompt(system, history, in.UserMessage)

	built := &BuiltPrompt{
		Prompt:  prompt,
		Sources: sources,
	}

	if in.Debug {
		built.Debug = newPromptDebug(system, retrievalContext, sources, userBlock, agentBlock, prompt, len(history))
	}

	return built, nil
}

// retrieve 获取检索上下文
//
// 索引为空时完全不执行检索。检索失败记录日志并降级为
// 无检索上下文，不让失败阻断对话请求。
func (b *PromptBuilder) retrieve(ctx context.Context, query string) (string, []string) {
	if b.store == nil {
		return "", nil
	}

	count, err := b.store.Count(ctx)
	if err != nil {
		b.logger.Warn("retrieval degraded: index stats unavailable", "error", err)
		return "", nil
	}
	if count == 0 {
		return "", nil
	}

	retrievalContext, sources, err := b.store.ContextWithSources(ctx, query)
	if err != nil {
		b.logger.Warn("retrieval degraded: search failed", "error", err)
		return "", nil
	}

	return retrievalContext, sources
}

// boundHistory 返回最近的 n 轮历史，原顺序保留
func boundHistory(history []message.Turn, n int) []message.Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
