package bias

import (
	"github.com/jonreiter/govader"
)

// 分析器加载词典开销较大，进程内只初始化一次
var analyzer = govader.NewSentimentIntensityAnalyzer()

// Sentiment 返回 [-1, 1] 区间的 VADER 综合极性分（compound）
func Sentiment(text string) float64 {
	if text == "" {
		return 0
	}
	c := analyzer.PolarityScores(text).Compound
	if c < -1 {
		return -1
	}
	if c > 1 {
		return 1
	}
	return c
}
