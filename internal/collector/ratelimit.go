package collector

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Gate 进程内所有出站请求共用的限速闸门：任意两次请求之间至少间隔 delay。
// 抓取可以并发，但同一时刻只有一个调用者能拿到“下一次请求”的名额。
type Gate struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGate(delay time.Duration) *Gate {
	if delay < 0 {
		delay = 0
	}
	return &Gate{
		delay: delay,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Wait 阻塞到允许发出下一次请求为止，并把当前时刻记为最近一次请求时间
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		// time.Now 带单调时钟读数，Sub 不受墙钟回拨影响
		if wait := g.delay - g.now().Sub(g.last); wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	g.last = g.now()
	return nil
}

// Delay 返回配置的最小间隔
func (g *Gate) Delay() time.Duration {
	return g.delay
}

// gatedTransport 每次往返前先过闸门，使第三方库自行发出的请求（如 robots.txt）也受限速约束
type gatedTransport struct {
	gate *Gate
	next http.RoundTripper
}

// Transport 返回经过闸门的 RoundTripper；next 为 nil 时使用 http.DefaultTransport
func (g *Gate) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &gatedTransport{gate: g, next: next}
}

func (t *gatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.gate.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
