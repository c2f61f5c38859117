// Package config 提供 feedmirror 的配置加载和内置订阅源表。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// 订阅源抓取方式。
const (
	KindJournalTopic = "journal_topic" // 上游 RSS 主题 feed + 文章页增强
	KindRedSection   = "red_section"   // 文章网格页抓取最新一篇
	KindIMRIssue     = "imr_issue"     // 期刊当期页面抓取
)

const defaultUserAgent = "rss-feed-mirror/2.0 " +
	"(https://github.com/iabetor/feedmirror; contact: iabetor@example.com)"

// Config 是 feedmirror 的顶层配置结构。
type Config struct {
	DataDir string        `yaml:"data_dir"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Archive ArchiveConfig `yaml:"archive"`
	Feeds   []Feed        `yaml:"feeds"`
}

// HTTPConfig 抓取用 HTTP 客户端配置。
type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// ArchiveConfig 镜像归档数据库配置。
type ArchiveConfig struct {
	// Enabled 为 nil 时默认开启。
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// On 返回归档是否开启。
func (a ArchiveConfig) On() bool {
	return a.Enabled == nil || *a.Enabled
}

// Feed 单个订阅源配置，进程生命周期内不变。
type Feed struct {
	Slug        string `yaml:"slug"`
	Kind        string `yaml:"kind"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	// URL 是抓取入口：journal_topic 为上游 feed 地址，其余为列表/主页地址。
	URL      string `yaml:"url"`
	MaxItems int    `yaml:"max_items"`
	// HistoryPath/OutputPath 为空时由 data_dir 和 slug 推导。
	HistoryPath string `yaml:"history_path"`
	OutputPath  string `yaml:"output_path"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回内置配置（四个镜像源）。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// FindFeed 按 slug 查找订阅源配置。
func (c *Config) FindFeed(slug string) (Feed, bool) {
	for _, f := range c.Feeds {
		if f.Slug == slug {
			return f, true
		}
	}
	return Feed{}, false
}

// Slugs 返回排序后的全部 slug。
func (c *Config) Slugs() []string {
	slugs := make([]string, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		slugs = append(slugs, f.Slug)
	}
	sort.Strings(slugs)
	return slugs
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		cfg.HTTP.TimeoutSeconds = 30
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = defaultUserAgent
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = filepath.Join(cfg.DataDir, "archive.db")
	}
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = builtinFeeds()
	}

	for i := range cfg.Feeds {
		f := &cfg.Feeds[i]
		if f.MaxItems <= 0 {
			f.MaxItems = 30
		}
		if f.HistoryPath == "" {
			f.HistoryPath = filepath.Join(cfg.DataDir, f.Slug+"_history.json")
		}
		if f.OutputPath == "" {
			f.OutputPath = filepath.Join(cfg.DataDir, f.Slug+".xml")
		}
	}
}

// validate 检查订阅源配置的完整性。
func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if f.Slug == "" {
			return fmt.Errorf("订阅源缺少 slug")
		}
		if seen[f.Slug] {
			return fmt.Errorf("订阅源 slug 重复: %s", f.Slug)
		}
		seen[f.Slug] = true

		switch f.Kind {
		case KindJournalTopic, KindRedSection, KindIMRIssue:
		default:
			return fmt.Errorf("订阅源 %s 的 kind 无效: %q", f.Slug, f.Kind)
		}
		if f.URL == "" {
			return fmt.Errorf("订阅源 %s 缺少 url", f.Slug)
		}
	}
	return nil
}

// builtinFeeds 返回内置的四个镜像源，与线上部署保持一致。
func builtinFeeds() []Feed {
	return []Feed{
		{
			Slug:        "journal9",
			Kind:        KindJournalTopic,
			Title:       "Journal.ie – Daily 9-at-9 Mirror",
			Link:        "https://www.thejournal.ie/topic/9-at-9/",
			Description: "Locally mirrored feed of TheJournal.ie Daily 9-at-9 bulletins.",
			URL:         "https://www.thejournal.ie/topic/9-at-9/feed/",
			MaxItems:    30,
		},
		{
			Slug:        "red_articles",
			Kind:        KindRedSection,
			Title:       "Red Network – Articles",
			Link:        "https://rednetwork.net/articles/",
			Description: "Mirror of the main Red Network articles section.",
			URL:         "https://rednetwork.net/articles/",
			MaxItems:    30,
		},
		{
			Slug:        "red_theory",
			Kind:        KindRedSection,
			Title:       "Red Network – Red Theory",
			Link:        "https://rednetwork.net/red-theory/",
			Description: "Mirror of the Red Theory long-form pieces.",
			URL:         "https://rednetwork.net/red-theory/",
			MaxItems:    30,
		},
		{
			Slug:        "imr_issue",
			Kind:        KindIMRIssue,
			Title:       "Irish Marxist Review – Issues",
			Link:        "https://irishmarxistreview.net/index.php/imr/issue/current",
			Description: "Notifies when a new Irish Marxist Review issue is published.",
			URL:         "https://irishmarxistreview.net/index.php/imr",
			MaxItems:    12,
		},
	}
}
