package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Housing plan</title></head>
<body>
<nav>Home | News | Sports</nav>
<article>
<h1>Ottawa announces new housing plan</h1>
<p>The federal government unveiled a sweeping housing plan on Wednesday that aims to double
the pace of construction across the country within the next decade.</p>
<p>Officials said the programme would be funded through a mix of low-interest loans,
direct grants to municipalities and changes to the tax treatment of rental buildings.</p>
<p>The minister told reporters in Ottawa that provinces which signed on early would receive
their first instalments before the end of the fiscal year, with further payments tied to permit targets.</p>
<p>Several big-city mayors welcomed the announcement, saying the money would help clear long backlogs
of approved projects that had stalled because of rising interest rates and construction costs.</p>
<p>Critics argued the timeline was unrealistic given current labour shortages in the trades.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestPageExtractorReturnsArticleText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	mux.HandleFunc("/news/story", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewPageExtractor(NewGate(0), 5*time.Second, "NewsPulseTest/1.0")
	text, err := e.Extract(context.Background(), srv.URL+"/news/story")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if !strings.Contains(text, "sweeping housing plan") {
		t.Fatalf("extracted text missing article body: %q", text)
	}
}

func TestPageExtractorRespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	})
	mux.HandleFunc("/news/story", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("page should not be fetched when robots.txt disallows it")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewPageExtractor(NewGate(0), 5*time.Second, "")
	if _, err := e.Extract(context.Background(), srv.URL+"/news/story"); err == nil {
		t.Fatalf("expected robots.txt block error")
	}
}

func TestPageExtractorRobotsLookupPassesGate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	mux.HandleFunc("/news/story", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	gate, clock := newFakeGate(2 * time.Second)
	e := NewPageExtractor(gate, 5*time.Second, "")
	if _, err := e.Extract(context.Background(), srv.URL+"/news/story"); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	// robots.txt 和正文两次请求：第二次必须等满间隔
	if len(clock.slept) != 1 || clock.slept[0] != 2*time.Second {
		t.Fatalf("gate sleeps = %v, want [2s]", clock.slept)
	}
}

func TestPageExtractorInvalidURL(t *testing.T) {
	e := NewPageExtractor(NewGate(0), time.Second, "")
	if _, err := e.Extract(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
