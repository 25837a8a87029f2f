package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/LJTian/NewsPulse/internal/app"
	"github.com/LJTian/NewsPulse/internal/config"
)

// 一个仅执行一次采集任务的命令行入口：由外部调度（如 GitHub Actions 每小时）调用
func main() {
	force := flag.Bool("force", false, "ignore allowed_hours and run immediately")
	feeds := flag.String("config", "", "pipeline config path (overrides FEEDS_CONFIG)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg := config.Load()
	if *feeds != "" {
		cfg.FeedsConfig = *feeds
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer a.Close()

	report, err := a.Orchestrator.Run(ctx, *force)
	if err != nil {
		a.Close()
		log.Fatalf("collect failed: %v", err)
	}
	for _, s := range report.Sections {
		if s.Failed() {
			log.Printf("section %s failed: %s", s.Key, s.Error)
			continue
		}
		log.Printf("section %s: fetched=%d kept=%d duplicates=%d windowed_out=%d capped=%d published=%d",
			s.Key, s.Fetched, s.Kept, s.Duplicates, s.WindowedOut, s.Capped, s.Published)
	}
	log.Printf("collect %s, items=%d", report.Outcome, report.Items)
}
