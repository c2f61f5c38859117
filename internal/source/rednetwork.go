package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/iabetor/feedmirror/internal/feed"
	"github.com/iabetor/feedmirror/internal/fetch"
	"github.com/iabetor/feedmirror/internal/logger"
)

// redMaxParagraphs 正文段落上限
const redMaxParagraphs = 15

// redSectionExtractor 纯抓取变体：该来源没有上游 feed，
// 从栏目网格页定位最新一篇，跟进文章页提取正文。
type redSectionExtractor struct {
	listingURL string
}

func (x *redSectionExtractor) Extract(ctx context.Context, client *fetch.Client) ([]feed.Entry, error) {
	doc, err := client.GetDocument(ctx, x.listingURL)
	if err != nil {
		return nil, err
	}

	card := doc.Find(".articles__grid a.article-link").First()
	if card.Length() == 0 {
		return nil, fmt.Errorf("网格页 %s 中没有找到文章", x.listingURL)
	}

	href, _ := card.Attr("href")
	link := resolveURL(x.listingURL, href)

	title := cleanText(card.Find(".headline").First().Text())
	if title == "" {
		title = href
	}
	author := cleanText(card.Find(".author").First().Text())

	var published time.Time
	if dateText := cleanText(card.Find(".date").First().Text()); dateText != "" {
		published = parseRedDate(dateText)
	}

	articleDoc, err := client.GetDocument(ctx, link)
	if err != nil {
		return nil, err
	}
	summary, paragraphs := extractRedArticle(articleDoc)

	return []feed.Entry{{
		Title:       title,
		Link:        link,
		Author:      author,
		Published:   published,
		Summary:     summary,
		ContentHTML: formatRedDescription(summary, paragraphs),
	}}, nil
}

// parseRedDate 解析网格卡片上的日期（如 "3 January 2024"，Europe/Dublin）。
// 解析失败时返回零值，条目按无发布时间处理。
func parseRedDate(value string) time.Time {
	t, err := time.ParseInLocation("2 January 2006", value, dublin())
	if err != nil {
		logger.Debugf("[red] 无法解析日期 %q: %v", value, err)
		return time.Time{}
	}
	return t
}

// extractRedArticle 从文章页提取摘要和正文段落。
func extractRedArticle(doc *goquery.Document) (string, []string) {
	summary := ""
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		summary = strings.TrimSpace(content)
	}
	if summary == "" {
		summary = cleanText(doc.Find(".reader__content p").First().Text())
	}

	var paragraphs []string
	doc.Find(".reader__content p").Each(func(_ int, p *goquery.Selection) {
		if len(paragraphs) >= redMaxParagraphs {
			return
		}
		if text := cleanText(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return summary, paragraphs
}

// formatRedDescription 组装 description 正文：摘要 + 正文段落。
func formatRedDescription(summary string, paragraphs []string) string {
	var b strings.Builder
	if summary != "" {
		b.WriteString("<p>" + summary + "</p>")
	}
	for _, para := range paragraphs {
		b.WriteString("<p>" + para + "</p>")
	}
	return b.String()
}
