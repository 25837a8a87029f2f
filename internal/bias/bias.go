// Package bias 对单篇文章做确定性的轻量偏向标注：文章类型、情感极性、主观性提示。
// 纯函数，无 I/O，相同输入永远得到相同结果。
package bias

import (
	"math"
	"net/url"
	"regexp"
	"strings"
)

type ArticleType string

const (
	Opinion ArticleType = "Opinion"
	News    ArticleType = "News"
)

type Subjectivity string

const (
	SubjectivityLow    Subjectivity = "low"
	SubjectivityMedium Subjectivity = "medium"
	SubjectivityHigh   Subjectivity = "high"
)

// Classification 与快照中的 bias_heuristic 字段一一对应
type Classification struct {
	ArticleType      ArticleType  `json:"article_type"`
	Sentiment        float64      `json:"sentiment"`
	SubjectivityHint Subjectivity `json:"subjectivity_hint"`
}

// Classify 三项计算彼此独立
func Classify(title, summary, rawURL string) Classification {
	text := strings.TrimSpace(title + " " + summary)
	return Classification{
		ArticleType:      DetectArticleType(rawURL),
		Sentiment:        round3(Sentiment(text)),
		SubjectivityHint: SubjectivityHint(text),
	}
}

// DetectArticleType URL 路径中出现 "opinion"（不区分大小写，任意位置子串）即为评论
func DetectArticleType(rawURL string) ArticleType {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		path = u.Path
	}
	if strings.Contains(strings.ToLower(path), "opinion") {
		return Opinion
	}
	return News
}

var (
	firstPersonRe = regexp.MustCompile(`\b(i|we|me|us|my|our|mine|ours)\b`)
	modalVerbRe   = regexp.MustCompile(`\b(should|would|could|must|might|may|ought)\b`)
	evaluativeRe  = regexp.MustCompile(`\b(important|significant|remarkable|terrible|wonderful|excellent|poor|good|bad)\b`)
)

// MarkerCount 统计主观性词汇标记出现的次数
func MarkerCount(text string) int {
	lower := strings.ToLower(text)
	return len(firstPersonRe.FindAllStringIndex(lower, -1)) +
		len(modalVerbRe.FindAllStringIndex(lower, -1)) +
		len(evaluativeRe.FindAllStringIndex(lower, -1))
}

// SubjectivityHint 0 个标记为 low，1-2 个为 medium，3 个及以上为 high
func SubjectivityHint(text string) Subjectivity {
	switch n := MarkerCount(text); {
	case n == 0:
		return SubjectivityLow
	case n <= 2:
		return SubjectivityMedium
	default:
		return SubjectivityHigh
	}
}

func round3(f float64) float64 {
	r := math.Round(f*1000) / 1000
	// 避免输出 -0
	if r == 0 {
		return 0
	}
	return r
}
