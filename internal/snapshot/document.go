// Package snapshot 负责快照文档的组装、原子落盘以及可选的镜像发布。
package snapshot

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/LJTian/NewsPulse/internal/bias"
	"github.com/LJTian/NewsPulse/internal/processor"
)

// Document 下游页面读取的完整快照，每次成功运行整体替换
type Document struct {
	Source      string `json:"source"`
	GeneratedAt string `json:"generated_at"`
	Timezone    string `json:"timezone"`
	Items       []Item `json:"items"`
}

// Item 快照中的单篇文章，所有字段始终输出
type Item struct {
	ID            string              `json:"id"`
	Section       string              `json:"section"`
	SectionName   string              `json:"section_name"`
	Title         string              `json:"title"`
	URL           string              `json:"url"`
	PublishedAt   string              `json:"published_at"`
	SummaryAuto   string              `json:"summary_auto"`
	BiasHeuristic bias.Classification `json:"bias_heuristic"`
}

// Build 按分区配置顺序、分区内发布时间倒序组装文档；时间统一输出为配置时区的 RFC 3339
func Build(source string, loc *time.Location, generatedAt time.Time, sectionOrder []string, articles []processor.Article) *Document {
	if loc == nil {
		loc = time.UTC
	}
	rank := make(map[string]int, len(sectionOrder))
	for i, key := range sectionOrder {
		rank[key] = i
	}
	sectionRank := func(key string) int {
		if r, ok := rank[key]; ok {
			return r
		}
		return len(sectionOrder)
	}

	sorted := make([]processor.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := sectionRank(a.Section), sectionRank(b.Section); ra != rb {
			return ra < rb
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	items := make([]Item, 0, len(sorted))
	for _, a := range sorted {
		items = append(items, Item{
			ID:            a.ID,
			Section:       a.Section,
			SectionName:   a.SectionName,
			Title:         a.Title,
			URL:           a.URL,
			PublishedAt:   a.PublishedAt.In(loc).Format(time.RFC3339),
			SummaryAuto:   a.Summary,
			BiasHeuristic: a.Bias,
		})
	}

	return &Document{
		Source:      source,
		GeneratedAt: generatedAt.In(loc).Format(time.RFC3339),
		Timezone:    loc.String(),
		Items:       items,
	}
}

// Marshal 两空格缩进，不转义 HTML 字符
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode 解析已落盘或缓存中的快照
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = []Item{}
	}
	return &doc, nil
}

// SectionCounts 每个分区的文章数，用于通知与诊断
func (d *Document) SectionCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range d.Items {
		counts[it.Section]++
	}
	return counts
}
