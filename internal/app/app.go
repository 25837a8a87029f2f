// Package app 按环境变量与流水线配置组装各组件，供 cmd/collect 与 cmd/api 共用。
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/LJTian/NewsPulse/internal/api"
	"github.com/LJTian/NewsPulse/internal/collector"
	"github.com/LJTian/NewsPulse/internal/config"
	"github.com/LJTian/NewsPulse/internal/notify"
	"github.com/LJTian/NewsPulse/internal/pipeline"
	"github.com/LJTian/NewsPulse/internal/snapshot"
	"github.com/LJTian/NewsPulse/internal/storage"
)

type App struct {
	Config       *config.Config
	Pipeline     *config.Pipeline
	Orchestrator *pipeline.Orchestrator

	// Snapshots 配置了数据库时读数据库（带 Redis 缓存），否则读本地快照文件
	Snapshots api.SnapshotSource
	Store     *storage.Store

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	p, err := config.LoadPipeline(cfg.FeedsConfig)
	if err != nil {
		return nil, err
	}
	log.Printf("pipeline loaded: %d sections %v, timezone=%s, allowed_hours=%v",
		len(p.Sections), p.SectionKeys(), p.Timezone, p.AllowedHours)

	a := &App{Config: cfg, Pipeline: p}

	gate := collector.NewGate(p.RateLimit())
	fetcher := collector.NewRSSFetcher(gate, p.RequestTimeout(), p.UserAgent)
	writer := snapshot.NewFileWriter(p.OutputPath)
	a.Snapshots = writer

	opts := pipeline.Options{
		Config:  p,
		Fetcher: fetcher,
		Writer:  writer,
		Now:     config.Now,
	}
	if p.AllowExtract {
		opts.Extractor = collector.NewPageExtractor(gate, p.RequestTimeout(), p.UserAgent)
	}

	if cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.Store = store
		a.Snapshots = store
		opts.Publishers = append(opts.Publishers, store)
		opts.Recorder = store
	}

	if cfg.S3Bucket != "" {
		s3p, err := snapshot.NewS3Publisher(ctx, snapshot.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Prefix:       cfg.S3Prefix,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init s3 publisher: %w", err)
		}
		opts.Publishers = append(opts.Publishers, s3p)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp, err := notify.NewKafkaPublisher(notify.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			// 通知是可选镜像，连不上 broker 不阻止启动
			log.Printf("warn: kafka publisher disabled: %v", err)
		} else {
			opts.Publishers = append(opts.Publishers, kp)
			a.closers = append(a.closers, kp.Close)
		}
	}

	a.Orchestrator = pipeline.New(opts)
	return a, nil
}

// Close 释放可选组件持有的连接
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("warn: close: %v", err)
		}
	}
	if a.Store != nil && a.Store.Redis != nil {
		_ = a.Store.Redis.Close()
	}
}
