// Package pipeline 串联一次完整运行：时段闸门 -> 并发抓取 -> 清洗 -> 去重 -> 时间窗/上限 -> 写快照 -> 镜像。
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/NewsPulse/internal/collector"
	"github.com/LJTian/NewsPulse/internal/config"
	"github.com/LJTian/NewsPulse/internal/processor"
	"github.com/LJTian/NewsPulse/internal/scheduler"
	"github.com/LJTian/NewsPulse/internal/snapshot"
)

// SnapshotWriter 主输出，写入失败即本次运行失败
type SnapshotWriter interface {
	Write(data []byte) error
}

// RunRecorder 保存运行诊断，失败只记录日志
type RunRecorder interface {
	RecordRun(ctx context.Context, r *Report) error
}

type Options struct {
	Config     *config.Pipeline
	Fetcher    collector.Fetcher
	Extractor  processor.Enricher // 仅在 allow_extract 为 true 时使用
	Writer     SnapshotWriter
	Publishers []snapshot.Publisher
	Recorder   RunRecorder
	Now        func() time.Time
}

type Orchestrator struct {
	cfg        *config.Pipeline
	fetcher    collector.Fetcher
	normalizer *processor.Normalizer
	writer     SnapshotWriter
	publishers []snapshot.Publisher
	recorder   RunRecorder
	now        func() time.Time

	mu   sync.Mutex
	last *Report
}

func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var enricher processor.Enricher
	if opts.Config.AllowExtract && opts.Extractor != nil {
		enricher = opts.Extractor
	}
	return &Orchestrator{
		cfg:        opts.Config,
		fetcher:    opts.Fetcher,
		normalizer: processor.NewNormalizer(opts.Config.Location(), opts.Config.SummaryMaxChars, enricher),
		writer:     opts.Writer,
		publishers: opts.Publishers,
		recorder:   opts.Recorder,
		now:        now,
	}
}

// sectionResult 每个分区一个槽位，下游顺序与网络完成先后无关
type sectionResult struct {
	articles []processor.Article
	stats    SectionStats
}

// Execute 实现 scheduler.Job
func (o *Orchestrator) Execute(ctx context.Context, force bool) error {
	_, err := o.Run(ctx, force)
	return err
}

// LastReport 最近一次运行的报告，尚未运行时为 nil
func (o *Orchestrator) LastReport() *Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Run 执行一次完整流程。跳过不是错误；只有全部分区失败或主输出写入失败才返回错误。
func (o *Orchestrator) Run(ctx context.Context, force bool) (*Report, error) {
	loc := o.cfg.Location()
	now := o.now()
	report := &Report{
		Forced:    force,
		StartedAt: now,
		LocalHour: now.In(loc).Hour(),
	}
	defer o.finish(ctx, report)

	if scheduler.Decide(now, loc, o.cfg.AllowedHours) == scheduler.Skip {
		if !force {
			log.Printf("pipeline: local hour %d not in allowed hours %v, skip", report.LocalHour, o.cfg.AllowedHours)
			report.Outcome = OutcomeSkipped
			return report, nil
		}
		log.Printf("pipeline: force run at local hour %d, bypassing schedule gate", report.LocalHour)
	}

	results := o.collect(ctx)

	var failures []string
	for _, r := range results {
		report.Sections = append(report.Sections, r.stats)
		if r.stats.Failed() {
			failures = append(failures, r.stats.Key+": "+r.stats.Error)
		}
	}
	if len(failures) == len(results) {
		err := fmt.Errorf("%w: %s", ErrAllSectionsFailed, strings.Join(failures, "; "))
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		return report, err
	}

	articles := o.assemble(now, results, report)

	doc := snapshot.Build(o.cfg.Source, loc, now, o.cfg.SectionKeys(), articles)
	data, err := snapshot.Marshal(doc)
	if err != nil {
		err = fmt.Errorf("marshal snapshot: %w", err)
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		return report, err
	}
	if err := o.writer.Write(data); err != nil {
		err = fmt.Errorf("write snapshot: %w", err)
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		return report, err
	}

	report.Outcome = OutcomePublished
	report.Items = len(doc.Items)
	o.mirror(ctx, doc, data, report)

	log.Printf("pipeline: published %d items from %d/%d sections", report.Items, len(results)-len(failures), len(results))
	return report, nil
}

// collect 所有分区并发抓取，共享同一个限速闸门
func (o *Orchestrator) collect(ctx context.Context) []sectionResult {
	sections := o.cfg.Sections
	results := make([]sectionResult, len(sections))

	var wg sync.WaitGroup
	for i, sec := range sections {
		wg.Add(1)
		go func(i int, sec config.Section) {
			defer wg.Done()
			stats := SectionStats{Key: sec.Key, Name: sec.Name, Drops: map[string]int{}}

			entries, err := o.fetcher.Fetch(ctx, sec.URL)
			if err != nil {
				log.Printf("pipeline: section %s failed: %v", sec.Key, err)
				stats.Error = err.Error()
				results[i] = sectionResult{stats: stats}
				return
			}
			stats.Fetched = len(entries)

			articles, drops := o.normalizer.NormalizeAll(ctx, sec, entries)
			for reason, n := range drops {
				stats.Drops[string(reason)] = n
			}
			stats.Kept = len(articles)
			if dropped := stats.Fetched - stats.Kept; dropped > 0 {
				log.Printf("pipeline: section %s dropped %d entries %v", sec.Key, dropped, stats.Drops)
			}
			results[i] = sectionResult{articles: articles, stats: stats}
		}(i, sec)
	}
	wg.Wait()
	return results
}

// assemble 按配置顺序汇总后去重，再逐分区应用时间窗与上限
func (o *Orchestrator) assemble(now time.Time, results []sectionResult, report *Report) []processor.Article {
	var pooled []processor.Article
	for _, r := range results {
		pooled = append(pooled, r.articles...)
	}
	unique, merged := processor.Deduplicate(pooled)

	bySection := make(map[string][]processor.Article, len(o.cfg.Sections))
	for _, a := range unique {
		bySection[a.Section] = append(bySection[a.Section], a)
	}

	var out []processor.Article
	for i, sec := range o.cfg.Sections {
		stats := &report.Sections[i]
		stats.Duplicates = merged[sec.Key]
		if stats.Failed() {
			continue
		}
		kept, ws := processor.ApplyWindowCap(bySection[sec.Key], now, o.cfg.Window(sec), sec.MaxItems)
		stats.WindowedOut = ws.WindowedOut
		stats.Capped = ws.Capped
		stats.Published = len(kept)
		out = append(out, kept...)
	}
	return out
}

// mirror 镜像失败不影响本次运行结果
func (o *Orchestrator) mirror(ctx context.Context, doc *snapshot.Document, data []byte, report *Report) {
	if len(o.publishers) == 0 {
		return
	}
	report.Mirrors = make(map[string]string, len(o.publishers))
	for _, p := range o.publishers {
		if err := p.Publish(ctx, doc, data); err != nil {
			log.Printf("pipeline: mirror %s failed: %v", p.Name(), err)
			report.Mirrors[p.Name()] = err.Error()
			continue
		}
		report.Mirrors[p.Name()] = "ok"
	}
}

func (o *Orchestrator) finish(ctx context.Context, report *Report) {
	report.FinishedAt = o.now()

	o.mu.Lock()
	o.last = report
	o.mu.Unlock()

	if o.recorder == nil || report.Outcome == OutcomeSkipped {
		return
	}
	if err := o.recorder.RecordRun(ctx, report); err != nil {
		log.Printf("pipeline: record run failed: %v", err)
	}
}
