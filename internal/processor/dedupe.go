package processor

// Deduplicate 按输入顺序保留每个指纹的第一次出现；输入应按分区配置顺序拼接，
// 因此同一篇文章出现在多个分区时归属于配置中靠前的分区。
// 返回值中的计数按被合并掉的条目所在分区统计。
func Deduplicate(articles []Article) ([]Article, map[string]int) {
	out := make([]Article, 0, len(articles))
	merged := make(map[string]int)
	seen := make(map[string]struct{}, len(articles))

	for _, a := range articles {
		if _, ok := seen[a.ID]; ok {
			merged[a.Section]++
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out, merged
}
