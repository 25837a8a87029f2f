package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job 一次完整的采集流程，force 为 true 时跳过时段闸门
type Job interface {
	Execute(ctx context.Context, force bool) error
}

// Scheduler 用 cron 周期唤醒采集；是否真正执行由 Job 内部的时段闸门决定
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// New timeout 限制单次运行的总时长，<=0 表示不限制
func New(spec string, loc *time.Location, job Job, timeout time.Duration) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	s := &Scheduler{
		cron:    c,
		job:     job,
		timeout: timeout,
	}

	_, err := c.AddFunc(spec, func() { s.run(false) })
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 启动后延迟一次唤醒，让 HTTP 服务先就绪
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.run(false)
	})
}

// Stop 停止 cron 并等待正在执行的 cron 任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 同步执行一次，返回是否真正执行（已有任务在跑时返回 false）
func (s *Scheduler) RunOnce(force bool) bool {
	return s.run(force)
}

// Trigger 异步执行一次，供手动触发接口使用
func (s *Scheduler) Trigger(force bool) bool {
	// 在返回前占住执行位，避免 cron 在 goroutine 启动前抢先
	if !s.acquire() {
		return false
	}
	go s.execute(force)
	return true
}

// Running 当前是否有任务在执行
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(force bool) bool {
	if !s.acquire() {
		return false
	}
	s.execute(force)
	return true
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		log.Println("scheduler: previous run still in progress, skip")
		return false
	}
	s.running = true
	return true
}

// execute 调用方必须已通过 acquire 占住执行位
func (s *Scheduler) execute(force bool) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Printf("scheduler: start collect job (force=%v)...", force)
	if err := s.job.Execute(ctx, force); err != nil {
		log.Printf("scheduler: collect job error: %v", err)
		return
	}
	log.Println("scheduler: collect job done")
}
