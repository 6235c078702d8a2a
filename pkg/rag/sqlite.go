package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
)

// SQLiteIndex SQLite 向量索引
//
// 本地持久化后端。向量以小端 float32 二进制存储，
// 相似度在进程内计算，适合单机中小规模语料。
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex 创建 SQLite 向量索引
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// EnsureReady 初始化表结构
func (s *SQLiteIndex) EnsureReady(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		vector BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrIndexUnreachable, err)
	}
	return nil
}

// Upsert 批量写入分块向量
func (s *SQLiteIndex) Upsert(ctx context.Context, chunks []DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO chunks (id, source, content, chunk_index, vector)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source = excluded.source,
		content = excluded.content,
		chunk_index = excluded.chunk_index,
		vector = excluded.vector
	`

	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, query,
			chunk.ID, chunk.Source, chunk.Content, chunk.Index, encodeVector(chunk.Vector),
		); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	return nil
}

// DeleteBySource 删除指定来源的全部分块
func (s *SQLiteIndex) DeleteBySource(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	return nil
}

// DeleteAll 清空索引
func (s *SQLiteIndex) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	return nil
}

// Query 相似度检索
//
// 结果按分数降序排列，同分保持行序（稳定排序）。
func (s *SQLiteIndex) Query(ctx context.Context, vector []float32, topK int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, content, chunk_index, vector FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var chunk DocumentChunk
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Content, &chunk.Index, &blob); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
		}
		chunk.Vector = decodeVector(blob)
		results = append(results, RetrievalResult{
			Chunk: chunk,
			Score: cosineSimilarity(vector, chunk.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}

// Sources 列出索引中的全部来源
func (s *SQLiteIndex) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM chunks ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// Stats 返回索引统计信息
func (s *SQLiteIndex) Stats(ctx context.Context) (IndexStats, error) {
	var stats IndexStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.VectorCount); err != nil {
		return IndexStats{}, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM chunks LIMIT 1`).Scan(&blob)
	if err == nil {
		stats.Dimensions = len(blob) / 4
	} else if err != sql.ErrNoRows {
		return IndexStats{}, fmt.Errorf("%w: %v", errors.ErrVectorStoreFailed, err)
	}

	return stats, nil
}

// HealthCheck 健康检查
func (s *SQLiteIndex) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrIndexUnreachable, err)
	}
	return nil
}

// Close 释放资源
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// encodeVector 将向量编码为小端 float32 二进制
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector 解码小端 float32 二进制
func decodeVector(buf []byte) []float32 {
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector
}

// compile-time interface check
var _ VectorIndex = (*SQLiteIndex)(nil)
