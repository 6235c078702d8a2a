package chat

import (
	"fmt"
	"strings"

	"github.com/blacksky-llc/maurice-go/pkg/agent"
)

// noAgentDataMarker 管理模式下情报缺失的显式标记
//
// 管理员需要区分"查过但没有数据"和"没有查"，
// 普通模式下情报缺失时什么都不渲染。
const noAgentDataMarker = "AGENT INTELLIGENCE: no data available"

// interestTiers 兴趣等级到描述文本的固定映射
var interestTiers = map[string]string{
	"hot":  "This user is highly engaged and showing strong buying signals.",
	"warm": "This user has shown moderate interest and may need nurturing.",
	"cold": "This user is browsing casually with no strong intent yet.",
}

// buildIntelligenceBlock 渲染 Agent 情报段
//
// intel 为 nil 时：管理模式返回显式的"无数据"标记，普通模式返回空串。
// 管理模式额外追加一行包含字段清单的紧凑摘要。
func buildIntelligenceBlock(intel *agent.Intelligence, adminMode bool) string {
	if intel == nil {
		if adminMode {
			return noAgentDataMarker
		}
		return ""
	}

	var parts []string

	if intel.InterestLevel != "" {
		if desc, ok := interestTiers[intel.InterestLevel]; ok {
			parts = append(parts, desc)
		} else {
			parts = append(parts, "Interest level: "+intel.InterestLevel)
		}
	}

	if intel.LeadStatus != "" {
		parts = append(parts, "Lead status: "+intel.LeadStatus)
	}

	if len(intel.Facts) > 0 {
		parts = append(parts, "ENHANCED FACTS:")
		for _, key := range sortedKeys(intel.Facts) {
			parts = append(parts, fmt.Sprintf("  %s: %s", humanizeLabel(key), intel.Facts[key]))
		}
	}

	if intel.ConversationSummary != "" {
		parts = append(parts, "Conversation summary: "+intel.ConversationSummary)
	}

	if cr := intel.CompanyResearch; cr != nil {
		var lines []string
		if cr.Name != "" {
			lines = append(lines, "  Company: "+cr.Name)
		}
		if cr.Industry != "" {
			lines = append(lines, "  Industry: "+cr.Industry)
		}
		if cr.Summary != "" {
			lines = append(lines, "  Summary: "+cr.Summary)
		}
		if len(lines) > 0 {
			parts = append(parts, "COMPANY RESEARCH:")
			parts = append(parts, lines...)
		}
	}

	if adminMode {
		parts = append(parts, "Agent fields present: "+strings.Join(presentFields(intel), ", "))
	}

	if len(parts) == 0 {
		if adminMode {
			return noAgentDataMarker
		}
		return ""
	}

	return "AGENT INTELLIGENCE:\n" + strings.Join(parts, "\n")
}

// presentFields 列出情报中存在的字段名，用于管理模式摘要
func presentFields(intel *agent.Intelligence) []string {
	var fields []string
	if intel.InterestLevel != "" {
		fields = append(fields, "interest_level")
	}
	if intel.LeadStatus != "" {
		fields = append(fields, "lead_status")
	}
	if len(intel.Facts) > 0 {
		fields = append(fields, fmt.Sprintf("facts(%d)", len(intel.Facts)))
	}
	if intel.ConversationSummary != "" {
		fields = append(fields, "conversation_summary")
	}
	if intel.CompanyResearch != nil {
		fields = append(fields, "company_research")
	}
	if len(fields) == 0 {
		return []string{"none"}
	}
	return fields
}
