package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/iabetor/feedmirror/internal/feed"
	"github.com/iabetor/feedmirror/internal/fetch"
	"github.com/iabetor/feedmirror/internal/logger"
)

const (
	// journalCandidates 每轮从主题 feed 取的候选条目数
	journalCandidates = 3
	// journalMaxPoints 从文章页提取的要点上限
	journalMaxPoints = 9
)

// journalExtractor 上游 RSS 种子变体：解析主题 feed 的候选条目，
// 再逐条抓取文章页增强正文。单篇文章页失败只降级该条，不中止整轮。
type journalExtractor struct {
	feedURL string
}

func (x *journalExtractor) Extract(ctx context.Context, client *fetch.Client) ([]feed.Entry, error) {
	body, err := client.Get(ctx, x.feedURL)
	if err != nil {
		return nil, err
	}

	upstream, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析主题 feed 失败: %w", err)
	}
	if len(upstream.Items) == 0 {
		return nil, fmt.Errorf("主题 feed 中没有条目")
	}

	limit := journalCandidates
	if len(upstream.Items) < limit {
		limit = len(upstream.Items)
	}

	entries := make([]feed.Entry, 0, limit)
	for i := 0; i < limit; i++ {
		item := upstream.Items[i]
		if item.Title == "" && item.Link == "" {
			continue
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		entry := feed.Entry{
			Title:     item.Title,
			Link:      item.Link,
			Published: published,
		}

		doc, err := client.GetDocument(ctx, item.Link)
		if err != nil {
			// 文章页不可达时退回 feed 自带的描述
			logger.Warnf("[journal] 抓取文章页 %s 失败，使用 feed 描述: %v", item.Link, err)
			entry.Summary = cleanText(item.Description)
		} else {
			summary, points := extractJournalArticle(doc)
			entry.Summary = summary
			entry.ContentHTML = formatJournalDescription(summary, points)
		}

		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("主题 feed 中没有可用条目")
	}
	return entries, nil
}

// extractJournalArticle 从文章页提取摘要和要点列表。
// 摘要优先取 og:description，其次正文第一段；
// 要点取已知选择器下的第一个列表，都不命中时退回前几段正文。
func extractJournalArticle(doc *goquery.Document) (string, []string) {
	summary := ""
	if content, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		summary = strings.TrimSpace(content)
	}
	if summary == "" {
		summary = cleanText(doc.Find("article p").First().Text())
	}

	selectors := []string{
		"article ol",
		"article ul",
		".article_body ol",
		".article_body ul",
		".article-content ol",
		".article-content ul",
	}

	var points []string
	for _, sel := range selectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		var items []string
		container.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := cleanText(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		points = items
		if len(points) >= 5 {
			break
		}
	}

	if len(points) == 0 {
		doc.Find("article p").Each(func(_ int, p *goquery.Selection) {
			if len(points) >= journalMaxPoints {
				return
			}
			if text := cleanText(p.Text()); text != "" {
				points = append(points, text)
			}
		})
	}

	if len(points) > journalMaxPoints {
		points = points[:journalMaxPoints]
	}
	return summary, points
}

// formatJournalDescription 组装 description 正文：摘要段落 + 要点有序列表。
func formatJournalDescription(summary string, points []string) string {
	var b strings.Builder
	if summary != "" {
		b.WriteString("<p>" + summary + "</p>")
	}
	if len(points) > 0 {
		b.WriteString("<ol>")
		for _, point := range points {
			b.WriteString("<li>" + point + "</li>")
		}
		b.WriteString("</ol>")
	}
	return b.String()
}
