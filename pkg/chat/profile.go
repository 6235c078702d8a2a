package chat

import "context"

// ProfileStore 外部用户档案存储的只读接口
//
// 关系存储本身不在本模块范围内，调用方提供实现。
// 只有管理模式的提示装配会读取浏览汇总。
type ProfileStore interface {
	// BrowsingSummary 返回用户的浏览汇总
	BrowsingSummary(ctx context.Context, userID string) (*BrowsingSummary, error)
}

// BrowsingSummary 用户浏览汇总
type BrowsingSummary struct {
	// TopPanels 浏览最多的页面面板
	TopPanels []PanelView `json:"top_panels"`
}

// PanelView 单个面板的浏览统计
type PanelView struct {
	// Title 面板标题
	Title string `json:"title"`
	// Count 浏览次数
	Count int `json:"count"`
}
