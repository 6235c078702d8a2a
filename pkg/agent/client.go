// Package agent 提供 Agent 平台的 HTTP 客户端
//
// Agent 平台是外部用户情报服务。查询在对话请求路径上，
// 超时必须短，结果带 TTL 缓存。平台不可用时对话正常降级。
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	coreerrors "github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/otel"
)

// Intelligence Agent 平台返回的用户情报
//
// 所有字段都是可选的不可信输入，装配器只渲染存在的字段。
type Intelligence struct {
	// InterestLevel 兴趣等级（hot/warm/cold，其他值原样透传）
	InterestLevel string `json:"interest_level,omitempty"`
	// LeadStatus 线索状态
	LeadStatus string `json:"lead_status,omitempty"`
	// Facts AI 提取的用户事实
	Facts map[string]string `json:"enhanced_facts,omitempty"`
	// ConversationSummary 历史对话摘要
	ConversationSummary string `json:"conversation_summary,omitempty"`
	// CompanyResearch 公司调研结果
	CompanyResearch *CompanyResearch `json:"company_research,omitempty"`
	// IsNewUser 平台未收录该用户
	IsNewUser bool `json:"is_new_user,omitempty"`
}

// CompanyResearch 公司调研结果
type CompanyResearch struct {
	// Name 公司名称
	Name string `json:"name,omitempty"`
	// Industry 所属行业
	Industry string `json:"industry,omitempty"`
	// Summary 调研摘要
	Summary string `json:"summary,omitempty"`
}

// Client Agent 平台客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
	metrics    otel.Metrics
}

// Option 配置客户端
type Option func(*Client)

// WithAPIKey 设置访问密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithTimeout 设置查询超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCacheTTL 设置查询结果缓存时间
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache.New(ttl, 2*ttl)
	}
}

// WithHTTPClient 设置自定义 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(metrics otel.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// NewClient 创建 Agent 平台客户端
//
// baseURL 为空表示平台未配置，所有查询返回 ErrAgentNotConfigured。
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured 返回平台地址是否已配置
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// HealthCheck 检查平台是否可达
func (c *Client) HealthCheck(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// LookupUserContext 查询用户情报
//
// 结果按用户缓存。404 表示平台未收录该用户，作为 IsNewUser
// 结果返回并缓存（避免对新用户重复查询）。超时或非 2xx 响应
// 返回 ErrAgentUnavailable，调用方应继续无情报流程。
func (c *Client) LookupUserContext(ctx context.Context, userID string) (*Intelligence, error) {
	if !c.Configured() {
		return nil, coreerrors.ErrAgentNotConfigured
	}

	cacheKey := "user_context:" + userID
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.metrics.Counter(otel.MetricAgentCacheHits).Add(ctx, 1)
		return cached.(*Intelligence), nil
	}
	c.metrics.Counter(otel.MetricAgentCacheMisses).Add(ctx, 1)
	c.metrics.Counter(otel.MetricAgentLookups).Add(ctx, 1)

	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/user/%s/context", userID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Counter(otel.MetricAgentErrors).Add(ctx, 1)
		return nil, coreerrors.WrapError(coreerrors.ErrAgentUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var intel Intelligence
		if err := json.NewDecoder(resp.Body).Decode(&intel); err != nil {
			c.metrics.Counter(otel.MetricAgentErrors).Add(ctx, 1)
			return nil, coreerrors.WrapError(coreerrors.ErrAgentUnavailable, "decode response")
		}
		c.cache.SetDefault(cacheKey, &intel)
		return &intel, nil

	case resp.StatusCode == http.StatusNotFound:
		intel := &Intelligence{IsNewUser: true}
		c.cache.SetDefault(cacheKey, intel)
		return intel, nil

	default:
		c.metrics.Counter(otel.MetricAgentErrors).Add(ctx, 1)
		return nil, coreerrors.WrapError(coreerrors.ErrAgentUnavailable,
			fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
}

// ClearCache 清除指定用户的缓存，userID 为空时清除全部
func (c *Client) ClearCache(userID string) {
	if userID == "" {
		c.cache.Flush()
		return
	}
	c.cache.Delete("user_context:" + userID)
}

// newRequest 创建带公共请求头的 HTTP 请求
func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var req *http.Request
	var err error

	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return nil, merr
		}
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(string(data)))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return req, nil
}
