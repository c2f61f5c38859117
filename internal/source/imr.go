package source

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/iabetor/feedmirror/internal/feed"
	"github.com/iabetor/feedmirror/internal/fetch"
	"github.com/iabetor/feedmirror/internal/logger"
)

// imrIssueExtractor 期刊当期变体：抓取期刊主页的当期块，
// 把封面和目录拼成一条"新一期已发布"的条目。
type imrIssueExtractor struct {
	baseURL string
}

func (x *imrIssueExtractor) Extract(ctx context.Context, client *fetch.Client) ([]feed.Entry, error) {
	doc, err := client.GetDocument(ctx, x.baseURL)
	if err != nil {
		return nil, err
	}

	current := doc.Find("section.current_issue").First()
	if current.Length() == 0 {
		return nil, fmt.Errorf("期刊主页 %s 中没有当期块", x.baseURL)
	}

	title := cleanText(current.Find(".current_issue_title").First().Text())
	if title == "" {
		title = "Irish Marxist Review – Latest Issue"
	}

	coverLink := current.Find(".obj_issue_toc .heading a.cover").First()
	issueLink := x.baseURL
	if href, ok := coverLink.Attr("href"); ok && href != "" {
		issueLink = resolveURL(x.baseURL, href)
	}

	coverSrc := ""
	coverAlt := title
	if img := coverLink.Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok && src != "" {
			coverSrc = resolveURL(x.baseURL, src)
		}
		if alt, ok := img.Attr("alt"); ok && alt != "" {
			coverAlt = cleanText(alt)
		}
	}

	var published time.Time
	publishedText := cleanText(current.Find(".published .value").First().Text())
	if publishedText != "" {
		published = parseIMRDate(publishedText)
	}

	var parts []string
	if coverSrc != "" {
		parts = append(parts, fmt.Sprintf(`<p><a href="%s"><img src="%s" alt="%s"></a></p>`,
			html.EscapeString(issueLink), html.EscapeString(coverSrc), html.EscapeString(coverAlt)))
	}
	parts = append(parts, "<p>"+html.EscapeString(title)+"</p>")
	if publishedText != "" {
		parts = append(parts, "<p><strong>Published:</strong> "+html.EscapeString(publishedText)+"</p>")
	}
	if toc := formatIMRSections(x.baseURL, current.Find(".sections .section")); toc != "" {
		parts = append(parts, toc)
	}

	return []feed.Entry{{
		Title:       title,
		Link:        issueLink,
		Published:   published,
		Summary:     title,
		ContentHTML: strings.Join(parts, ""),
	}}, nil
}

// parseIMRDate 解析当期块的发布日期，支持 "2006-01-02" 和 "2 January 2006" 两种格式。
func parseIMRDate(value string) time.Time {
	for _, layout := range []string{"2006-01-02", "2 January 2006"} {
		if t, err := time.ParseInLocation(layout, value, dublin()); err == nil {
			return t
		}
	}
	logger.Debugf("[imr] 无法解析日期 %q", value)
	return time.Time{}
}

// formatIMRSections 把当期目录渲染为按栏目分组的链接列表。
func formatIMRSections(baseURL string, sections *goquery.Selection) string {
	var b strings.Builder
	sections.Each(func(_ int, section *goquery.Selection) {
		articles := section.Find(".obj_article_summary")
		if articles.Length() == 0 {
			return
		}
		if heading := cleanText(section.Find("h3").First().Text()); heading != "" {
			b.WriteString("<h4>" + html.EscapeString(heading) + "</h4>")
		}
		b.WriteString("<ul>")
		articles.Each(func(_ int, article *goquery.Selection) {
			linkNode := article.Find("h4 a").First()
			title := cleanText(linkNode.Text())
			if title == "" {
				return
			}
			href := ""
			if raw, ok := linkNode.Attr("href"); ok && raw != "" {
				href = resolveURL(baseURL, raw)
			}
			if href != "" {
				b.WriteString(`<li><a href="` + html.EscapeString(href) + `">` + html.EscapeString(title) + "</a>")
			} else {
				b.WriteString("<li>" + html.EscapeString(title))
			}
			if authors := cleanText(article.Find(".meta .authors").First().Text()); authors != "" {
				b.WriteString(" – " + html.EscapeString(authors))
			}
			b.WriteString("</li>")
		})
		b.WriteString("</ul>")
	})
	return b.String()
}
