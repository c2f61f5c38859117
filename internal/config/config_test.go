package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultBuiltinFeeds(t *testing.T) {
	cfg := Default()

	if len(cfg.Feeds) != 4 {
		t.Fatalf("内置配置应有 4 个订阅源，得到 %d 个", len(cfg.Feeds))
	}

	wantSlugs := []string{"imr_issue", "journal9", "red_articles", "red_theory"}
	gotSlugs := cfg.Slugs()
	for i, slug := range wantSlugs {
		if gotSlugs[i] != slug {
			t.Errorf("Slugs 第 %d 位期望 %s，得到 %s", i, slug, gotSlugs[i])
		}
	}

	j9, ok := cfg.FindFeed("journal9")
	if !ok {
		t.Fatal("应能找到 journal9")
	}
	if j9.Kind != KindJournalTopic {
		t.Errorf("journal9 的 kind 不匹配: %s", j9.Kind)
	}
	if j9.MaxItems != 30 {
		t.Errorf("journal9 的 max_items 不匹配: %d", j9.MaxItems)
	}
	if j9.HistoryPath != filepath.Join("./data", "journal9_history.json") {
		t.Errorf("历史路径推导错误: %s", j9.HistoryPath)
	}
	if j9.OutputPath != filepath.Join("./data", "journal9.xml") {
		t.Errorf("输出路径推导错误: %s", j9.OutputPath)
	}

	imr, _ := cfg.FindFeed("imr_issue")
	if imr.MaxItems != 12 {
		t.Errorf("imr_issue 的 max_items 不匹配: %d", imr.MaxItems)
	}

	if cfg.HTTP.TimeoutSeconds != 30 {
		t.Errorf("默认超时不匹配: %d", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("默认日志级别不匹配: %s", cfg.Log.Level)
	}
	if !cfg.Archive.On() {
		t.Error("归档默认应开启")
	}
	if cfg.Archive.Path != filepath.Join("./data", "archive.db") {
		t.Errorf("归档路径推导错误: %s", cfg.Archive.Path)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedmirror.yaml")
	raw := `
data_dir: /tmp/mirror-data
http:
  timeout_seconds: 10
  user_agent: "${FEEDMIRROR_TEST_UA}"
log:
  level: debug
archive:
  enabled: false
feeds:
  - slug: demo
    kind: red_section
    title: Demo
    link: https://example.com/demo/
    description: demo feed
    url: https://example.com/demo/
    max_items: 5
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("FEEDMIRROR_TEST_UA", "custom-agent/1.0")
	defer os.Unsetenv("FEEDMIRROR_TEST_UA")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	if cfg.HTTP.TimeoutSeconds != 10 {
		t.Errorf("超时应被覆盖: %d", cfg.HTTP.TimeoutSeconds)
	}
	// 环境变量应被展开
	if cfg.HTTP.UserAgent != "custom-agent/1.0" {
		t.Errorf("User-Agent 环境变量未展开: %s", cfg.HTTP.UserAgent)
	}
	if cfg.Archive.On() {
		t.Error("归档应被关闭")
	}

	if len(cfg.Feeds) != 1 {
		t.Fatalf("期望 1 个订阅源，得到 %d 个", len(cfg.Feeds))
	}
	demo := cfg.Feeds[0]
	if demo.MaxItems != 5 {
		t.Errorf("max_items 应被覆盖: %d", demo.MaxItems)
	}
	if demo.HistoryPath != filepath.Join("/tmp/mirror-data", "demo_history.json") {
		t.Errorf("历史路径应按 data_dir 推导: %s", demo.HistoryPath)
	}
}

func TestLoadRejectsInvalidKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedmirror.yaml")
	raw := `
feeds:
  - slug: bad
    kind: no_such_kind
    url: https://example.com/
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("无效 kind 应返回错误")
	}
}

func TestLoadRejectsDuplicateSlug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedmirror.yaml")
	raw := `
feeds:
  - slug: dup
    kind: red_section
    url: https://example.com/a/
  - slug: dup
    kind: red_section
    url: https://example.com/b/
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("重复 slug 应返回错误")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "not_exist.yaml")); err == nil {
		t.Fatal("配置文件不存在应返回错误")
	}
}
