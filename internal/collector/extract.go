package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

const (
	extractDefaultTimeout = 15 * time.Second
	extractMaxBodyBytes   = 5 << 20 // 5MB
)

// PageExtractor 在 feed 没有摘要时抓取原文页面并提取正文，遵守 robots.txt
type PageExtractor struct {
	gate      *Gate
	timeout   time.Duration
	userAgent string
}

func NewPageExtractor(gate *Gate, timeout time.Duration, userAgent string) *PageExtractor {
	if timeout <= 0 {
		timeout = extractDefaultTimeout
	}
	if userAgent == "" {
		userAgent = BrowserUserAgent
	}
	return &PageExtractor{gate: gate, timeout: timeout, userAgent: userAgent}
}

// Extract 返回页面正文纯文本；任何失败都返回错误，由调用方决定是否忽略
func (e *PageExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("extract: invalid url %q", pageURL)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent(e.userAgent),
		colly.MaxBodySize(extractMaxBodyBytes),
	)
	c.IgnoreRobotsTxt = false
	c.SetRequestTimeout(e.timeout)
	// robots.txt 与正文请求都走同一个闸门
	c.WithTransport(e.gate.Transport(nil))

	var (
		body     []byte
		finalURL = u
		visitErr error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	if err := c.Visit(u.String()); err != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, err)
	}
	if visitErr != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, visitErr)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, err)
	}
	if len(body) == 0 {
		return "", errors.New("extract: empty page body")
	}

	article, err := readability.FromReader(bytes.NewReader(body), finalURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		text = strings.TrimSpace(article.Excerpt)
	}
	log.Printf("extract: %s -> %d chars", pageURL, len(text))
	return text, nil
}
