package collector

import (
	"context"
	"fmt"
	"time"
)

// RawEntry 单条 feed 条目的原始字段，清洗交给 processor
type RawEntry struct {
	Title       string
	Link        string
	Description string
	Content     string

	// 原始时间字符串与解析器已解析出的时间，二者都可能为空
	Published       string
	Updated         string
	PublishedParsed *time.Time
	UpdatedParsed   *time.Time

	// FeedLink 是 feed 自身声明的站点地址，用于补全相对链接
	FeedLink string
}

// Fetcher 抽象一个 feed 的抓取与解析
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]RawEntry, error)
}

// FetchError 网络、超时或非 200 状态
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError feed 文档格式错误
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
