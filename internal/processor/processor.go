package processor

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/LJTian/NewsPulse/internal/bias"
	"github.com/LJTian/NewsPulse/internal/collector"
	"github.com/LJTian/NewsPulse/internal/config"
)

// Article 清洗完成、带偏向标注的单篇文章
type Article struct {
	ID          string
	Section     string
	SectionName string
	Title       string
	URL         string
	PublishedAt time.Time
	Summary     string
	Bias        bias.Classification
}

type DropReason string

const (
	DropEmptyTitle       DropReason = "empty_title"
	DropInvalidURL       DropReason = "invalid_url"
	DropMissingTimestamp DropReason = "missing_timestamp"
)

// ValidationDrop 条目因校验失败被丢弃，不是错误，只计数
type ValidationDrop struct {
	Reason DropReason
	Link   string
}

func (d *ValidationDrop) Error() string {
	return fmt.Sprintf("drop entry %q: %s", d.Link, d.Reason)
}

// Enricher 在 feed 没有摘要时提供正文，collector.PageExtractor 实现了它
type Enricher interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Normalizer 把原始条目清洗为 Article
type Normalizer struct {
	loc        *time.Location
	summaryMax int
	enricher   Enricher // nil 时不做全文抽取
}

func NewNormalizer(loc *time.Location, summaryMax int, enricher Enricher) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if summaryMax <= 0 {
		summaryMax = config.DefaultSummaryMaxChars
	}
	return &Normalizer{loc: loc, summaryMax: summaryMax, enricher: enricher}
}

// NormalizeAll 逐条清洗一个 section 的条目，返回保留的文章和按原因统计的丢弃数
func (n *Normalizer) NormalizeAll(ctx context.Context, sec config.Section, entries []collector.RawEntry) ([]Article, map[DropReason]int) {
	out := make([]Article, 0, len(entries))
	drops := make(map[DropReason]int)
	for _, e := range entries {
		a, err := n.Normalize(ctx, sec, e)
		if err != nil {
			drops[err.(*ValidationDrop).Reason]++
			continue
		}
		out = append(out, a)
	}
	return out, drops
}

// Normalize 返回的错误一定是 *ValidationDrop
func (n *Normalizer) Normalize(ctx context.Context, sec config.Section, e collector.RawEntry) (Article, error) {
	title := strings.TrimSpace(html.UnescapeString(e.Title))
	if title == "" {
		return Article{}, &ValidationDrop{Reason: DropEmptyTitle, Link: e.Link}
	}

	base := e.FeedLink
	if base == "" {
		base = sec.URL
	}
	link, ok := resolveURL(e.Link, base)
	if !ok {
		return Article{}, &ValidationDrop{Reason: DropInvalidURL, Link: e.Link}
	}

	published, ok := pickTimestamp(e)
	if !ok {
		return Article{}, &ValidationDrop{Reason: DropMissingTimestamp, Link: e.Link}
	}

	summary := cleanHTML(e.Description)
	if summary == "" {
		summary = cleanHTML(e.Content)
	}
	if summary == "" && n.enricher != nil {
		text, err := n.enricher.Extract(ctx, link)
		if err != nil {
			log.Printf("processor: extract %s failed: %v", link, err)
		} else {
			summary = collapseSpace(text)
		}
	}
	summary = Summarize(summary, n.summaryMax)

	return Article{
		ID:          hashURL(CanonicalURL(link)),
		Section:     sec.Key,
		SectionName: sec.Name,
		Title:       title,
		URL:         link,
		PublishedAt: published.In(n.loc),
		Summary:     summary,
		Bias:        bias.Classify(title, summary, link),
	}, nil
}

// resolveURL 补全相对链接，只接受 http/https，小写 scheme 与 host，去掉 fragment
func resolveURL(raw, base string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !b.IsAbs() {
			return "", false
		}
		u = b.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	if u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// pickTimestamp 优先 published，其次 updated；解析器未识别的原始字符串再用 dateparse 兜底
func pickTimestamp(e collector.RawEntry) (time.Time, bool) {
	candidates := []struct {
		parsed *time.Time
		raw    string
	}{
		{e.PublishedParsed, e.Published},
		{e.UpdatedParsed, e.Updated},
	}
	for _, c := range candidates {
		if c.parsed != nil && !c.parsed.IsZero() {
			return *c.parsed, true
		}
		raw := strings.TrimSpace(c.raw)
		if raw == "" {
			continue
		}
		// 没有时区信息的时间按 UTC 处理
		t, err := dateparse.ParseIn(raw, time.UTC)
		if err == nil && !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}

// CanonicalURL 生成去重指纹用的规范 URL：去掉跟踪参数与末尾斜杠
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
