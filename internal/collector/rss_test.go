package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>CBC | Canada News</title>
  <link>https://www.cbc.ca/news/canada</link>
  <item>
    <title><![CDATA[Ottawa announces new housing plan]]></title>
    <link>https://www.cbc.ca/news/canada/housing-plan-1.7000001</link>
    <description><![CDATA[<p>The federal government unveiled a plan.</p>]]></description>
    <pubDate>Wed, 05 Nov 2025 09:30:00 EST</pubDate>
  </item>
  <item>
    <title>Relative link story</title>
    <link>/news/canada/relative-1.7000002</link>
    <pubDate>not a date</pubDate>
  </item>
</channel>
</rss>`

func TestParseFeedMapsEntries(t *testing.T) {
	entries, err := ParseFeed([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("ParseFeed error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	first := entries[0]
	if first.Title != "Ottawa announces new housing plan" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.PublishedParsed == nil {
		t.Fatalf("first entry should have a parsed pubDate")
	}
	if first.FeedLink != "https://www.cbc.ca/news/canada" {
		t.Fatalf("FeedLink = %q", first.FeedLink)
	}
	if !strings.Contains(first.Description, "federal government") {
		t.Fatalf("description = %q", first.Description)
	}

	// 无法解析的时间只保留原始字符串
	if entries[1].PublishedParsed != nil {
		t.Fatalf("second entry should not have a parsed date")
	}
	if entries[1].Published != "not a date" {
		t.Fatalf("raw published = %q", entries[1].Published)
	}
}

func TestParseFeedRejectsGarbage(t *testing.T) {
	if _, err := ParseFeed([]byte("<html><body>nope</body></html>")); err == nil {
		t.Fatalf("expected parse error for html document")
	}
	if _, err := ParseFeed(nil); err == nil {
		t.Fatalf("expected parse error for empty document")
	}
}

func TestRSSFetcherSuccessSendsHeaders(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != "NewsPulseTest/1.0" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if !strings.Contains(r.Header.Get("Accept"), "application/rss+xml") {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := NewRSSFetcher(NewGate(0), 5*time.Second, "NewsPulseTest/1.0")
	entries, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected exactly one GET, got %d", got)
	}
}

func TestRSSFetcherStatusIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRSSFetcher(NewGate(0), 5*time.Second, "")
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.URL != srv.URL {
		t.Fatalf("FetchError.URL = %q", fe.URL)
	}
}

func TestRSSFetcherMalformedIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	f := NewRSSFetcher(NewGate(0), 5*time.Second, "")
	_, err := f.Fetch(context.Background(), srv.URL)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestRSSFetcherTimeoutIsFetchError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewRSSFetcher(NewGate(0), 50*time.Millisecond, "")
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError on timeout", err)
	}
}
