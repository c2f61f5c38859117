// Package mirror 实现镜像主流程：抓取 → 抽取 → 合并 → 渲染 → 落盘。
package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/feedmirror/internal/archive"
	"github.com/iabetor/feedmirror/internal/config"
	"github.com/iabetor/feedmirror/internal/feed"
	"github.com/iabetor/feedmirror/internal/fetch"
	"github.com/iabetor/feedmirror/internal/logger"
	"github.com/iabetor/feedmirror/internal/source"
)

// Options 单轮运行参数。
type Options struct {
	Sources  []string // 要处理的 slug，为空表示全部
	MaxItems int      // >0 时覆盖每个源的默认条数上限
	DryRun   bool     // 只打印 XML，不写任何文件
}

// Result 单个订阅源的处理结果。
type Result struct {
	Slug     string
	NewCount int // 本轮新增条目数
	Total    int // 输出中的条目总数
	Err      error
}

// Mirror 顺序处理各订阅源，源之间互不影响。
type Mirror struct {
	cfg    *config.Config
	client *fetch.Client
	now    func() time.Time
	out    io.Writer // dry-run 的 XML 输出目标
}

// New 创建镜像运行器。
func New(cfg *config.Config) *Mirror {
	return &Mirror{
		cfg:    cfg,
		client: fetch.NewClient(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second, cfg.HTTP.UserAgent),
		now:    time.Now,
		out:    os.Stdout,
	}
}

// Run 依次处理选中的订阅源，返回每个源的结果。
// 任何一个源失败不影响其他源；全部失败与否由调用方根据结果决定。
func (m *Mirror) Run(ctx context.Context, opts Options) []Result {
	slugs := opts.Sources
	if len(slugs) == 0 {
		slugs = m.cfg.Slugs()
	}

	runID := uuid.NewString()

	// dry-run 不打开归档库，避免创建文件
	var arch *archive.Archive
	if !opts.DryRun && m.cfg.Archive.On() {
		a, err := archive.Open(m.cfg.Archive.Path)
		if err != nil {
			logger.Warnf("[mirror] 打开归档失败，本轮不归档: %v", err)
		} else {
			arch = a
			defer arch.Close()
		}
	}

	results := make([]Result, 0, len(slugs))
	for _, slug := range slugs {
		res := m.mirrorFeed(ctx, slug, opts, arch, runID)
		if res.Err != nil {
			logger.Errorf("[%s] 处理失败: %v", slug, res.Err)
		}
		results = append(results, res)
	}
	return results
}

// mirrorFeed 处理单个订阅源。
func (m *Mirror) mirrorFeed(ctx context.Context, slug string, opts Options, arch *archive.Archive, runID string) Result {
	res := Result{Slug: slug}

	fc, ok := m.cfg.FindFeed(slug)
	if !ok {
		res.Err = fmt.Errorf("未知的订阅源: %s", slug)
		return res
	}

	extractor, err := source.New(fc)
	if err != nil {
		res.Err = err
		return res
	}

	fresh, err := extractor.Extract(ctx, m.client)
	if err != nil {
		res.Err = fmt.Errorf("抽取失败: %w", err)
		return res
	}

	history := feed.LoadHistory(fc.HistoryPath)
	seen := make(map[string]bool, len(history))
	for _, e := range history {
		seen[e.GUID()] = true
	}
	for _, e := range fresh {
		if !seen[e.GUID()] {
			seen[e.GUID()] = true
			res.NewCount++
			logger.Infof("[%s] 新增条目: %s", slug, e.Title)
		}
	}
	if res.NewCount == 0 {
		logger.Infof("[%s] 最新条目已镜像过，保持历史不变", slug)
	}

	maxItems := fc.MaxItems
	if opts.MaxItems > 0 {
		maxItems = opts.MaxItems
	}
	merged := feed.Merge(fresh, history, m.now(), maxItems)
	res.Total = len(merged)

	xml, err := feed.RenderRSS(feed.Channel{
		Title:       fc.Title,
		Link:        fc.Link,
		Description: fc.Description,
	}, merged)
	if err != nil {
		res.Err = err
		return res
	}

	if opts.DryRun {
		fmt.Fprintf(m.out, "--- %s ---\n%s\n", slug, xml)
		return res
	}

	if err := os.MkdirAll(filepath.Dir(fc.OutputPath), 0755); err != nil {
		res.Err = fmt.Errorf("创建输出目录失败: %w", err)
		return res
	}
	if err := os.WriteFile(fc.OutputPath, []byte(xml), 0644); err != nil {
		res.Err = fmt.Errorf("写入 RSS 文件失败: %w", err)
		return res
	}
	if err := feed.SaveHistory(fc.HistoryPath, merged); err != nil {
		res.Err = err
		return res
	}

	// 归档失败只告警，不影响本源结果
	if arch != nil {
		if err := arch.Record(runID, slug, merged); err != nil {
			logger.Warnf("[%s] 归档失败: %v", slug, err)
		}
	}

	logger.Infof("[%s] 已写入 RSS: %s（新增 %d，共 %d 条）", slug, fc.OutputPath, res.NewCount, res.Total)
	return res
}
