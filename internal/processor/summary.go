package processor

import (
	"html"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// cleanHTML 去掉标签与脚本，反转义实体并压缩空白；每个标签都视作一个空格
func cleanHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.ReplaceAll(s, "<", " <")))
	if err != nil {
		return collapseSpace(html.UnescapeString(s))
	}
	doc.Find("script,style,noscript").Remove()
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Summarize 按句子累加直到 limit 个字符；第一句就放不下时按词边界截断
func Summarize(text string, limit int) string {
	text = collapseSpace(text)
	if text == "" || limit <= 0 {
		return ""
	}
	if len([]rune(text)) <= limit {
		return text
	}

	var b strings.Builder
	total := 0
	for _, sentence := range splitSentences(text) {
		n := len([]rune(sentence))
		if total > 0 {
			n++ // 空格
		}
		if total+n > limit {
			break
		}
		if total > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		total += n
	}
	if b.Len() > 0 {
		return b.String()
	}
	return truncateRunes(text, limit)
}

// splitSentences 以 . ! ? 后接空白作为句子边界
func splitSentences(text string) []string {
	rs := []rune(text)
	var out []string
	start := 0
	for i, r := range rs {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(rs[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(rs[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// truncateRunes 按 rune 截断，尽量退回到最近的空格，不切断单词
func truncateRunes(s string, limit int) string {
	rs := []rune(strings.TrimSpace(s))
	if limit <= 0 {
		return ""
	}
	if len(rs) <= limit {
		return string(rs)
	}
	cut := rs[:limit]
	// 截断点恰好在词尾时无需回退
	if !unicode.IsSpace(rs[limit]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimSpace(string(cut))
}
