package config

import "time"

// IndexBackend 向量索引后端类型
type IndexBackend string

const (
	// IndexQdrant Qdrant REST 后端
	IndexQdrant IndexBackend = "qdrant"
	// IndexSQLite SQLite 本地持久化后端
	IndexSQLite IndexBackend = "sqlite"
	// IndexMemory 内存后端
	IndexMemory IndexBackend = "memory"
)

// IsValid 检查索引后端是否有效
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexQdrant, IndexSQLite, IndexMemory:
		return true
	default:
		return false
	}
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// Enabled 是否启用检索
	Enabled bool `koanf:"enabled"`
	// Backend 索引后端选择器
	Backend IndexBackend `koanf:"backend"`
	// URL 索引服务地址（qdrant 后端）
	URL string `koanf:"url"`
	// APIKey 索引服务密钥（qdrant 后端，可选）
	APIKey string `koanf:"api_key"`
	// Collection 集合名称
	Collection string `koanf:"collection"`
	// Path 数据库文件路径（sqlite 后端）
	Path string `koanf:"path"`
	// Dimensions 嵌入向量维度
	Dimensions int `koanf:"dimensions"`
	// ChunkSize 分块目标大小（字符）
	// 默认: 500
	ChunkSize int `koanf:"chunk_size"`
	// ChunkOverlap 相邻分块重叠大小（字符）
	// 默认: 50
	ChunkOverlap int `koanf:"chunk_overlap"`
	// TopK 检索返回的分块数
	// 默认: 3
	TopK int `koanf:"top_k"`
	// Timeout 索引请求超时
	// 默认: 30s
	Timeout time.Duration `koanf:"timeout"`
	// DocsDir 启动时批量加载的文档目录（可选）
	DocsDir string `koanf:"docs_dir"`
}

// Validate 验证检索配置
func (c *RetrievalConfig) Validate() error {
	if !c.Backend.IsValid() {
		return ErrUnknownBackend
	}
	if c.Dimensions <= 0 {
		return ErrInvalidDimensions
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return ErrInvalidChunkOverlap
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c RetrievalConfig) WithDefaults() RetrievalConfig {
	if c.Backend == "" {
		c.Backend = IndexMemory
	}
	if c.URL == "" && c.Backend == IndexQdrant {
		c.URL = "http://localhost:6333"
	}
	if c.Collection == "" {
		c.Collection = "maurice_docs"
	}
	if c.Path == "" && c.Backend == IndexSQLite {
		c.Path = "maurice_index.db"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 768
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 50
	}
	if c.TopK == 0 {
		c.TopK = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
