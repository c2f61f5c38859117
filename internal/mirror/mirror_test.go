package mirror

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iabetor/feedmirror/internal/archive"
	"github.com/iabetor/feedmirror/internal/config"
	"github.com/iabetor/feedmirror/internal/feed"
)

const testListingHTML = `<div class="articles__grid">
  <a class="article-link" href="/articles/post-1">
    <span class="headline">Test Post</span>
    <span class="author">Author</span>
    <span class="date">3 January 2024</span>
  </a>
</div>`

const testArticleHTML = `<html>
<head><meta name="description" content="Post summary."></head>
<body><div class="reader__content"><p>Body text.</p></div></body>
</html>`

// newTestSite 模拟一个网格页 + 文章页的站点。
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/articles/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/articles/post-1" {
			w.Write([]byte(testArticleHTML))
			return
		}
		w.Write([]byte(testListingHTML))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir: dir,
		HTTP:    config.HTTPConfig{TimeoutSeconds: 5},
		Archive: config.ArchiveConfig{Path: filepath.Join(dir, "archive.db")},
		Feeds: []config.Feed{{
			Slug:        "demo",
			Kind:        config.KindRedSection,
			Title:       "Demo Feed",
			Link:        serverURL + "/articles/",
			Description: "test feed",
			URL:         serverURL + "/articles/",
			MaxItems:    10,
			HistoryPath: filepath.Join(dir, "demo_history.json"),
			OutputPath:  filepath.Join(dir, "demo.xml"),
		}},
	}
}

func TestMirrorRunWritesOutputs(t *testing.T) {
	server := newTestSite(t)
	cfg := newTestConfig(t, server.URL)

	m := New(cfg)
	m.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	results := m.Run(context.Background(), Options{})
	if len(results) != 1 {
		t.Fatalf("期望 1 个结果，得到 %d 个", len(results))
	}
	res := results[0]
	if res.Err != nil {
		t.Fatalf("处理失败: %v", res.Err)
	}
	if res.NewCount != 1 || res.Total != 1 {
		t.Errorf("首轮应新增 1 条: %+v", res)
	}

	fc := cfg.Feeds[0]
	xml, err := os.ReadFile(fc.OutputPath)
	if err != nil {
		t.Fatalf("RSS 文件应已写入: %v", err)
	}
	if !strings.Contains(string(xml), "Test Post") {
		t.Errorf("RSS 中应包含条目标题:\n%s", xml)
	}

	history := feed.LoadHistory(fc.HistoryPath)
	if len(history) != 1 {
		t.Fatalf("历史应有 1 条，得到 %d 条", len(history))
	}
	if !history[0].FirstSeen.Equal(m.now()) {
		t.Errorf("FirstSeen 应为本轮时间: %v", history[0].FirstSeen)
	}

	// 归档中也应有该条
	a, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		t.Fatalf("打开归档失败: %v", err)
	}
	defer a.Close()
	if n, _ := a.Count("demo"); n != 1 {
		t.Errorf("归档应有 1 条，得到 %d 条", n)
	}
}

func TestMirrorRunSecondTimeNoDuplicate(t *testing.T) {
	server := newTestSite(t)
	cfg := newTestConfig(t, server.URL)

	m := New(cfg)
	firstRun := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return firstRun }

	if res := m.Run(context.Background(), Options{}); res[0].Err != nil {
		t.Fatalf("首轮失败: %v", res[0].Err)
	}

	m.now = func() time.Time { return firstRun.Add(24 * time.Hour) }
	results := m.Run(context.Background(), Options{})
	res := results[0]
	if res.Err != nil {
		t.Fatalf("第二轮失败: %v", res.Err)
	}
	if res.NewCount != 0 {
		t.Errorf("同一条目不应重复新增: %+v", res)
	}
	if res.Total != 1 {
		t.Errorf("输出仍应只有 1 条: %+v", res)
	}

	history := feed.LoadHistory(cfg.Feeds[0].HistoryPath)
	if len(history) != 1 {
		t.Fatalf("历史应保持 1 条，得到 %d 条", len(history))
	}
	if !history[0].FirstSeen.Equal(firstRun) {
		t.Errorf("FirstSeen 应保持首轮时间: %v", history[0].FirstSeen)
	}
}

func TestMirrorDryRunTouchesNothing(t *testing.T) {
	server := newTestSite(t)
	cfg := newTestConfig(t, server.URL)

	var buf bytes.Buffer
	m := New(cfg)
	m.out = &buf

	results := m.Run(context.Background(), Options{DryRun: true})
	if results[0].Err != nil {
		t.Fatalf("dry-run 失败: %v", results[0].Err)
	}

	if !strings.Contains(buf.String(), "<rss") {
		t.Error("dry-run 应输出 RSS XML")
	}

	fc := cfg.Feeds[0]
	for _, path := range []string{fc.OutputPath, fc.HistoryPath, cfg.Archive.Path} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("dry-run 不应创建 %s", path)
		}
	}
}

func TestMirrorMaxItemsOverride(t *testing.T) {
	server := newTestSite(t)
	cfg := newTestConfig(t, server.URL)
	fc := cfg.Feeds[0]

	// 预置 5 条历史
	var history []feed.Entry
	for i := 0; i < 5; i++ {
		history = append(history, feed.Entry{
			Title:     "历史" + string(rune('a'+i)),
			Link:      "https://example.com/" + string(rune('a'+i)),
			Published: time.Date(2023, 1, 1+i, 0, 0, 0, 0, time.UTC),
			FirstSeen: time.Date(2023, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	if err := feed.SaveHistory(fc.HistoryPath, history); err != nil {
		t.Fatal(err)
	}

	m := New(cfg)
	results := m.Run(context.Background(), Options{MaxItems: 3})
	res := results[0]
	if res.Err != nil {
		t.Fatalf("处理失败: %v", res.Err)
	}
	if res.Total != 3 {
		t.Errorf("覆盖 max-items 后输出应为 3 条: %+v", res)
	}
	if got := feed.LoadHistory(fc.HistoryPath); len(got) != 3 {
		t.Errorf("历史保留策略应与输出一致，得到 %d 条", len(got))
	}
}

func TestMirrorUnknownSlug(t *testing.T) {
	server := newTestSite(t)
	cfg := newTestConfig(t, server.URL)

	m := New(cfg)
	results := m.Run(context.Background(), Options{Sources: []string{"no_such"}})
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("未知 slug 应返回失败结果: %+v", results)
	}
}

func TestMirrorSourceFailureIsIsolated(t *testing.T) {
	server := newTestSite(t)
	cfg := newTestConfig(t, server.URL)

	// 第二个源指向一个立即关闭的地址，必然失败
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	cfg.Feeds = append(cfg.Feeds, config.Feed{
		Slug:        "broken",
		Kind:        config.KindRedSection,
		Title:       "Broken",
		Link:        dead.URL,
		Description: "broken feed",
		URL:         dead.URL,
		MaxItems:    10,
		HistoryPath: filepath.Join(cfg.DataDir, "broken_history.json"),
		OutputPath:  filepath.Join(cfg.DataDir, "broken.xml"),
	})

	m := New(cfg)
	results := m.Run(context.Background(), Options{Sources: []string{"demo", "broken"}})
	if len(results) != 2 {
		t.Fatalf("期望 2 个结果，得到 %d 个", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("demo 不应受 broken 影响: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("broken 应失败")
	}
}
