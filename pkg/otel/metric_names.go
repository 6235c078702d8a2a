package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// Chat 指标
	MetricChatRequests        = "chat.requests"         // 计数器: 对话请求次数
	MetricChatRequestDuration = "chat.request.duration" // 直方图: 对话请求时间(ms)
	MetricChatErrors          = "chat.errors"           // 计数器: 对话错误次数
	MetricChatHistoryTurns    = "chat.history.turns"    // 直方图: 提示中的历史轮数

	// LLM 指标
	MetricLLMRequests         = "llm.requests"          // 计数器: LLM 请求次数
	MetricLLMRequestDuration  = "llm.request.duration"  // 直方图: LLM 请求时间(ms)
	MetricLLMTokensPrompt     = "llm.tokens.prompt"     // 计数器: Prompt Token 总数
	MetricLLMTokensCompletion = "llm.tokens.completion" // 计数器: Completion Token 总数
	MetricLLMErrors           = "llm.errors"            // 计数器: LLM 错误次数

	// 检索指标
	MetricRetrievalQueries       = "retrieval.queries"        // 计数器: 检索次数
	MetricRetrievalQueryDuration = "retrieval.query.duration" // 直方图: 检索时间(ms)
	MetricRetrievalErrors        = "retrieval.errors"         // 计数器: 检索失败次数
	MetricRetrievalChunksIndexed = "retrieval.chunks.indexed" // 计数器: 入库分块数
	MetricRetrievalDocsIndexed   = "retrieval.documents.indexed" // 计数器: 入库文档数

	// Agent 平台指标
	MetricAgentLookups     = "agent.lookups"      // 计数器: Agent 平台查询次数
	MetricAgentCacheHits   = "agent.cache.hits"   // 计数器: 查询缓存命中次数
	MetricAgentCacheMisses = "agent.cache.misses" // 计数器: 查询缓存未命中次数
	MetricAgentErrors      = "agent.errors"       // 计数器: 查询失败次数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricChatRequests, "Number of chat requests", UnitCount, "counter"},
	{MetricChatRequestDuration, "Duration of chat requests", UnitMilliseconds, "histogram"},
	{MetricChatErrors, "Number of chat errors", UnitCount, "counter"},
	{MetricChatHistoryTurns, "History turns included per prompt", UnitCount, "histogram"},

	{MetricLLMRequests, "Number of LLM requests", UnitCount, "counter"},
	{MetricLLMRequestDuration, "Duration of LLM requests", UnitMilliseconds, "histogram"},
	{MetricLLMTokensPrompt, "Number of prompt tokens", UnitCount, "counter"},
	{MetricLLMTokensCompletion, "Number of completion tokens", UnitCount, "counter"},
	{MetricLLMErrors, "Number of LLM errors", UnitCount, "counter"},

	{MetricRetrievalQueries, "Number of retrieval queries", UnitCount, "counter"},
	{MetricRetrievalQueryDuration, "Duration of retrieval queries", UnitMilliseconds, "histogram"},
	{MetricRetrievalErrors, "Number of retrieval failures", UnitCount, "counter"},
	{MetricRetrievalChunksIndexed, "Number of chunks indexed", UnitCount, "counter"},
	{MetricRetrievalDocsIndexed, "Number of documents indexed", UnitCount, "counter"},

	{MetricAgentLookups, "Number of agent platform lookups", UnitCount, "counter"},
	{MetricAgentCacheHits, "Number of lookup cache hits", UnitCount, "counter"},
	{MetricAgentCacheMisses, "Number of lookup cache misses", UnitCount, "counter"},
	{MetricAgentErrors, "Number of agent platform errors", UnitCount, "counter"},
}
