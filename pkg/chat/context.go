package chat

import (
	"fmt"
	"sort"
	"strings"
)

// maxCandidateMatches 身份验证块中最多列出的候选数
const maxCandidateMatches = 3

// UserContext 用户档案上下文
//
// 由调用方从外部用户存储组装，所有字段可选。
// 缺失的字段直接省略，不渲染占位文本。
type UserContext struct {
	// IsReturning 是否回访用户
	IsReturning bool `json:"is_returning"`
	// Name 已知的用户名
	Name string `json:"name,omitempty"`
	// LastSummary 上次对话摘要
	LastSummary string `json:"last_summary,omitempty"`
	// LastInterests 上次关注的话题
	LastInterests []string `json:"last_interests,omitempty"`
	// Facts 已知的用户事实（键为蛇形标签，渲染时人性化）
	Facts map[string]string `json:"facts,omitempty"`
}

// CandidateMatch 身份验证候选
//
// 用户刚报出名字时，调用方提供可能匹配的历史用户供模型确认。
type CandidateMatch struct {
	// Name 候选姓名
	Name string `json:"name"`
	// LastTopic 该候选上次咨询的话题
	LastTopic string `json:"last_topic,omitempty"`
}

// buildUserContextBlock 渲染用户上下文段
//
// 按固定顺序：回访问候、上次摘要、上次兴趣、身份验证候选（上限 3）、
// 已知事实、去重后的最近页面浏览，最后是仅管理模式可见的浏览汇总。
// 所有输入为空时返回空串。
func buildUserContextBlock(userCtx *UserContext, matches []CandidateMatch, pageViews []string, browsing *BrowsingSummary) string {
	var parts []string

	if userCtx != nil && userCtx.IsReturning {
		if userCtx.Name != "" {
			parts = append(parts, "Returning user: "+userCtx.Name)
		} else {
			parts = append(parts, "Returning user (name unknown)")
		}

		if userCtx.LastSummary != "" {
			parts = append(parts, "Previous conversation: "+userCtx.LastSummary)
		}

		if len(userCtx.LastInterests) > 0 {
			parts = append(parts, "Previous interests: "+strings.Join(userCtx.LastInterests, ", "))
		}
	}

	if len(matches) > 0 {
		parts = append(parts, "\nPOTENTIAL MATCHES (user just provided their name - verify their identity):")
		for i, match := range matches {
			if i >= maxCandidateMatches {
				break
			}
			topic := match.LastTopic
			if topic == "" {
				topic = "general questions"
			}
			parts = append(parts, fmt.Sprintf("  - %s who previously asked about: %s", match.Name, topic))
		}
	}

	if userCtx != nil && len(userCtx.Facts) > 0 {
		parts = append(parts, "\nKNOWN FACTS ABOUT THIS USER:")
		for _, key := range sortedKeys(userCtx.Facts) {
			parts = append(parts, fmt.Sprintf("  %s: %s", humanizeLabel(key), userCtx.Facts[key]))
		}
	}

	if views := dedupePageViews(pageViews); len(views) > 0 {
		parts = append(parts, "\nRECENT PAGES VIEWED:")
		for _, v := range views {
			parts = append(parts, "  - "+v)
		}
	}

	if browsing != nil && len(browsing.TopPanels) > 0 {
		parts = append(parts, "\nBROWSING SUMMARY (admin only):")
		for _, p := range browsing.TopPanels {
			parts = append(parts, fmt.Sprintf("  %s: viewed %d times", p.Title, p.Count))
		}
	}

	if len(parts) == 0 {
		return ""
	}

	return "USER CONTEXT:\n" + strings.Join(parts, "\n")
}

// humanizeLabel 将蛇形标签转换为可读标签，如 pain_point -> Pain Point
func humanizeLabel(label string) string {
	words := strings.Split(strings.ReplaceAll(label, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// dedupePageViews 按首次出现顺序去重
func dedupePageViews(views []string) []string {
	if len(views) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(views))
	var result []string
	for _, v := range views {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// sortedKeys 返回排序后的 map 键，保证事实渲染顺序确定
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
