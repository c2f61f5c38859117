package feed

import (
	"fmt"

	"github.com/gorilla/feeds"
)

// Channel RSS 频道元信息。
type Channel struct {
	Title       string
	Link        string
	Description string
}

// RenderRSS 将条目列表序列化为 RSS 2.0 文档。
// 条目按输入顺序输出；description 由 XML 编码器做实体转义。
// 不读取时钟：相同输入永远产生逐字节相同的输出，保证版本库 diff 有意义。
func RenderRSS(ch Channel, entries []Entry) (string, error) {
	f := &feeds.Feed{
		Title:       ch.Title,
		Link:        &feeds.Link{Href: ch.Link},
		Description: ch.Description,
	}

	for _, e := range entries {
		item := &feeds.Item{
			Title:       e.Title,
			Link:        &feeds.Link{Href: e.Link},
			Id:          e.GUID(),
			Description: e.Description(),
			// Created 为零值时 gorilla/feeds 不输出 pubDate
			Created: e.Published,
		}
		if e.Author != "" {
			item.Author = &feeds.Author{Name: e.Author}
		}
		f.Items = append(f.Items, item)
	}

	rss, err := f.ToRss()
	if err != nil {
		return "", fmt.Errorf("渲染 RSS 失败: %w", err)
	}
	return rss, nil
}
