package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	rssMaxResponseBytes = 10 << 20 // 10MB
	rssDefaultTimeout   = 20 * time.Second
	rssAccept           = "application/rss+xml,application/xml;q=0.9,*/*;q=0.8"

	// BrowserUserAgent 部分出版方 CDN 会软封禁非浏览器 UA
	BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// RSSFetcher 经限速闸门对每个 feed 只发一次 GET，并用 gofeed 解析 RSS/Atom
type RSSFetcher struct {
	client    *http.Client
	gate      *Gate
	userAgent string
}

// NewRSSFetcher gate 必须在所有抓取者之间共享；timeout<=0 时使用默认值
func NewRSSFetcher(gate *Gate, timeout time.Duration, userAgent string) *RSSFetcher {
	if timeout <= 0 {
		timeout = rssDefaultTimeout
	}
	if userAgent == "" {
		userAgent = BrowserUserAgent
	}
	return &RSSFetcher{
		client:    &http.Client{Timeout: timeout},
		gate:      gate,
		userAgent: userAgent,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]RawEntry, error) {
	if err := f.gate.Wait(ctx); err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", rssAccept)
	// 避免在出版方 CDN 上残留长连接
	req.Close = true

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: feedURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, rssMaxResponseBytes))
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: fmt.Errorf("read body: %w", err)}
	}

	entries, err := ParseFeed(body)
	if err != nil {
		return nil, &ParseError{URL: feedURL, Err: err}
	}

	log.Printf("rss: %s returned %d entries", feedURL, len(entries))
	return entries, nil
}

// ParseFeed 把 feed 文档转换成原始条目；gofeed.Parser 非并发安全，每次新建
func ParseFeed(data []byte) ([]RawEntry, error) {
	if len(data) == 0 {
		return nil, errors.New("empty feed document")
	}

	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, err
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, RawEntry{
			Title:           item.Title,
			Link:            item.Link,
			Description:     item.Description,
			Content:         item.Content,
			Published:       item.Published,
			Updated:         item.Updated,
			PublishedParsed: item.PublishedParsed,
			UpdatedParsed:   item.UpdatedParsed,
			FeedLink:        feed.Link,
		})
	}
	return entries, nil
}
