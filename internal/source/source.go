// Package source 按来源族提供条目抽取器：
// 上游 RSS 增强抓取、文章网格页抓取、期刊当期页抓取。
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iabetor/feedmirror/internal/config"
	"github.com/iabetor/feedmirror/internal/feed"
	"github.com/iabetor/feedmirror/internal/fetch"
)

// Extractor 统一的抽取契约：输入抓取客户端，输出按新旧排序的条目列表。
// 可选字段缺失（如发布时间）不应导致失败；返回错误表示该源本轮失败。
type Extractor interface {
	Extract(ctx context.Context, client *fetch.Client) ([]feed.Entry, error)
}

// New 按订阅源配置声明的 kind 选择具体实现。
func New(cfg config.Feed) (Extractor, error) {
	switch cfg.Kind {
	case config.KindJournalTopic:
		return &journalExtractor{feedURL: cfg.URL}, nil
	case config.KindRedSection:
		return &redSectionExtractor{listingURL: cfg.URL}, nil
	case config.KindIMRIssue:
		return &imrIssueExtractor{baseURL: cfg.URL}, nil
	default:
		return nil, fmt.Errorf("未知的订阅源类型: %q", cfg.Kind)
	}
}

// cleanText 合并连续空白并去除首尾空白。
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveURL 将 href 解析为 base 下的绝对地址，解析失败时原样返回。
func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

var (
	dublinOnce sync.Once
	dublinLoc  *time.Location
)

// dublin 返回 Europe/Dublin 时区，加载失败时退回 UTC。
func dublin() *time.Location {
	dublinOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Dublin")
		if err != nil {
			loc = time.UTC
		}
		dublinLoc = loc
	})
	return dublinLoc
}
