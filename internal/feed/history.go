package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/feedmirror/internal/logger"
)

// LoadHistory 读取一个订阅源的历史记录。
// 文件不存在、无法读取或不是 JSON 数组时返回空历史（绝不致命）；
// 单条记录损坏或缺少身份字段时只丢弃该条。
func LoadHistory(path string) []Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("[history] 读取 %s 失败（按空历史处理）: %v", path, err)
		}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warnf("[history] %s 不是有效的 JSON 数组（按空历史处理）: %v", path, err)
		return nil
	}

	entries := make([]Entry, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, msg := range raw {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			logger.Warnf("[history] %s 第 %d 条记录损坏，已丢弃: %v", path, i, err)
			continue
		}
		if e.Link == "" && e.Title == "" {
			logger.Warnf("[history] %s 第 %d 条记录缺少链接和标题，已丢弃", path, i)
			continue
		}
		// 同一身份只保留先出现的一条
		guid := e.GUID()
		if seen[guid] {
			continue
		}
		seen[guid] = true
		entries = append(entries, e)
	}
	return entries
}

// SaveHistory 原子写入历史记录：先写临时文件再替换，避免中断导致文件截断。
func SaveHistory(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建历史目录失败: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化历史失败: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入临时历史文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("替换历史文件失败: %w", err)
	}
	return nil
}
