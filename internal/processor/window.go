package processor

import (
	"sort"
	"time"
)

// WindowStats 单个分区在时间窗与条数上限阶段丢掉的数量
type WindowStats struct {
	WindowedOut int
	Capped      int
}

// ApplyWindowCap 丢弃早于 now-window 的文章，按发布时间倒序（同一时间按 id）排序后截取前 maxItems 条。
// articles 应属于同一分区；输入切片不会被修改。
func ApplyWindowCap(articles []Article, now time.Time, window time.Duration, maxItems int) ([]Article, WindowStats) {
	var stats WindowStats
	cutoff := now.Add(-window)

	kept := make([]Article, 0, len(articles))
	for _, a := range articles {
		if a.PublishedAt.Before(cutoff) {
			stats.WindowedOut++
			continue
		}
		kept = append(kept, a)
	}

	SortNewestFirst(kept)

	if maxItems >= 0 && len(kept) > maxItems {
		stats.Capped = len(kept) - maxItems
		kept = kept[:maxItems]
	}
	return kept, stats
}

// SortNewestFirst 发布时间倒序，时间相同按 id 升序，保证结果可复现
func SortNewestFirst(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}
