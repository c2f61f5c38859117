// Package feed 提供镜像条目模型、历史存储、合并与 RSS 渲染。
package feed

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Entry 一条被镜像的文章/条目。
type Entry struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Author string `json:"author,omitempty"`
	// Published 来源给出的发布时间，零值表示来源未提供。
	Published time.Time `json:"published"`
	Summary   string    `json:"summary,omitempty"`
	// ContentHTML 渲染进 description 的正文，存储时未做实体转义。
	ContentHTML string `json:"content_html,omitempty"`
	// FirstSeen 本系统第一次捕获该条目的时间，写入后不再变更。
	FirstSeen time.Time `json:"first_seen"`
}

// GUID 返回条目的去重标识：链接的 SHA-1，链接为空时退化为标题的 SHA-1。
func (e Entry) GUID() string {
	key := e.Link
	if key == "" {
		key = e.Title
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Description 返回用于渲染的正文，正文为空时退回摘要。
func (e Entry) Description() string {
	if e.ContentHTML != "" {
		return e.ContentHTML
	}
	return e.Summary
}
