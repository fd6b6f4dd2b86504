package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileArchiveCache = 512

// FileArchive 以 JSON Lines 追加写的方式归档报告，并在内存中缓存最近的记录。
type FileArchive struct {
	mu       sync.RWMutex
	dataFile string
	records  []Report
}

// NewFileArchive 创建文件归档，path 为空时只保存在内存中。
func NewFileArchive(path string) (*FileArchive, error) {
	archive := &FileArchive{dataFile: path}
	if path == "" {
		return archive, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建归档目录失败: %w", err)
	}
	if err := archive.loadFromDisk(); err != nil {
		return nil, err
	}
	return archive, nil
}

// Save 追加一条报告。
func (a *FileArchive) Save(_ context.Context, r Report) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dataFile != "" {
		file, err := os.OpenFile(a.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("打开报告归档失败: %w", err)
		}
		defer file.Close()

		encoded, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("序列化报告失败: %w", err)
		}
		if _, err := file.Write(append(encoded, '\n')); err != nil {
			return fmt.Errorf("写入报告归档失败: %w", err)
		}
	}

	a.records = append([]Report{r}, a.records...)
	if len(a.records) > fileArchiveCache {
		a.records = a.records[:fileArchiveCache]
	}
	return nil
}

// Latest 按时间倒序返回最近的报告。
func (a *FileArchive) Latest(_ context.Context, limit int) ([]Report, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	limit = NormalizeLimit(limit)
	if limit > len(a.records) {
		limit = len(a.records)
	}
	results := make([]Report, limit)
	copy(results, a.records[:limit])
	return results, nil
}

func (a *FileArchive) loadFromDisk() error {
	file, err := os.OpenFile(a.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取报告归档失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var restored []Report
	for scanner.Scan() {
		var r Report
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		restored = append([]Report{r}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析报告归档失败: %w", err)
	}
	if len(restored) > fileArchiveCache {
		restored = restored[:fileArchiveCache]
	}
	a.records = restored
	return nil
}

var _ Archive = (*FileArchive)(nil)
