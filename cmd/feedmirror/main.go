package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/iabetor/feedmirror/internal/config"
	"github.com/iabetor/feedmirror/internal/logger"
	"github.com/iabetor/feedmirror/internal/mirror"
)

// sliceFlag 可重复指定的字符串参数（-source a -source b）。
type sliceFlag []string

func (s *sliceFlag) String() string { return strings.Join(*s, ",") }

func (s *sliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	var sources sliceFlag
	configPath := flag.String("config", "", "配置文件路径，为空则使用内置配置")
	flag.Var(&sources, "source", "只处理指定 slug 的订阅源，可重复指定，默认全部")
	maxItems := flag.Int("max-items", 0, "覆盖每个订阅源的历史条数上限")
	dryRun := flag.Bool("dry-run", false, "只打印生成的 RSS，不写文件、不保存历史")
	listSources := flag.Bool("list-sources", false, "列出可用的订阅源 slug 后退出")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if *listSources {
		for _, slug := range cfg.Slugs() {
			fc, _ := cfg.FindFeed(slug)
			fmt.Printf("%-12s -> %s\n", slug, fc.Title)
		}
		return
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	results := mirror.New(cfg).Run(context.Background(), mirror.Options{
		Sources:  sources,
		MaxItems: *maxItems,
		DryRun:   *dryRun,
	})

	// 运行摘要：只有全部源失败才返回非零
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Warnf("[main] %s: 失败（%v）", res.Slug, res.Err)
		} else {
			logger.Infof("[main] %s: 成功（新增 %d，共 %d 条）", res.Slug, res.NewCount, res.Total)
		}
	}
	if len(results) > 0 && failed == len(results) {
		os.Exit(1)
	}
}
