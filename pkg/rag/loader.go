package rag

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryLoader 目录文档加载器
//
// 递归加载目录下的 .txt/.md 文件，跳过下划线开头的文件名。
type DirectoryLoader struct {
	dir string
}

// NewDirectoryLoader 创建目录加载器
func NewDirectoryLoader(dir string) *DirectoryLoader {
	return &DirectoryLoader{dir: dir}
}

// SupportedExtensions 支持的文件扩展名
func (l *DirectoryLoader) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}

// Load 加载目录下的全部文档
//
// 单个文件读取失败会跳过该文件并计入失败列表，不中断整个批次。
// 目录本身不可遍历才返回错误。
func (l *DirectoryLoader) Load(ctx context.Context) ([]Document, []error, error) {
	var docs []Document
	var failures []error

	supported := make(map[string]struct{})
	for _, ext := range l.SupportedExtensions() {
		supported[ext] = struct{}{}
	}

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, "_") {
			return nil
		}
		if _, ok := supported[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			failures = append(failures, readErr)
			return nil
		}

		docs = append(docs, Document{
			Content: string(content),
			Source:  name,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return docs, failures, nil
}
