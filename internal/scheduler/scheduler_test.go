package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestDecideAllowedHours(t *testing.T) {
	loc := mustLoc(t, "America/Toronto")
	allowed := []int{8, 14, 20}

	// 2025-11-05 为 EST（UTC-5）
	at := func(hh, mm int) time.Time { return time.Date(2025, 11, 5, hh, mm, 0, 0, loc) }

	if d := Decide(at(14, 5), loc, allowed); d != Permit {
		t.Fatalf("14:05 local should permit, got %s", d)
	}
	if d := Decide(at(15, 0), loc, allowed); d != Skip {
		t.Fatalf("15:00 local should skip, got %s", d)
	}
	if d := Decide(time.Date(2025, 11, 5, 19, 5, 0, 0, time.UTC), loc, allowed); d != Permit {
		t.Fatalf("19:05 UTC is 14:05 in Toronto, should permit, got %s", d)
	}
}

func TestDecideEmptyListAlwaysPermits(t *testing.T) {
	for h := 0; h < 24; h++ {
		now := time.Date(2025, 1, 1, h, 30, 0, 0, time.UTC)
		if d := Decide(now, time.UTC, nil); d != Permit {
			t.Fatalf("hour %d with empty list should permit", h)
		}
	}
}

func TestDecideFollowsDST(t *testing.T) {
	loc := mustLoc(t, "America/Toronto")
	allowed := []int{14}

	// 同一个 UTC 时刻 18:05：夏令时是 14:05，冬令时是 13:05
	summer := time.Date(2025, 7, 1, 18, 5, 0, 0, time.UTC)
	winter := time.Date(2025, 12, 1, 18, 5, 0, 0, time.UTC)
	if d := Decide(summer, loc, allowed); d != Permit {
		t.Fatalf("summer 18:05 UTC should permit, got %s", d)
	}
	if d := Decide(winter, loc, allowed); d != Skip {
		t.Fatalf("winter 18:05 UTC should skip, got %s", d)
	}
}

type fakeJob struct {
	mu     sync.Mutex
	calls  []bool
	block  chan struct{}
	err    error
	called chan struct{}
}

func (j *fakeJob) Execute(_ context.Context, force bool) error {
	j.mu.Lock()
	j.calls = append(j.calls, force)
	j.mu.Unlock()
	if j.called != nil {
		j.called <- struct{}{}
	}
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("not a cron", time.UTC, &fakeJob{}, 0); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestRunOncePassesForce(t *testing.T) {
	job := &fakeJob{err: errors.New("all sections failed")}
	s, err := New("5 * * * *", time.UTC, job, time.Second)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !s.RunOnce(true) {
		t.Fatalf("RunOnce should run")
	}
	if !s.RunOnce(false) {
		t.Fatalf("RunOnce should run even after a failed job")
	}
	if len(job.calls) != 2 || job.calls[0] != true || job.calls[1] != false {
		t.Fatalf("calls = %v", job.calls)
	}
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	job := &fakeJob{block: make(chan struct{}), called: make(chan struct{}, 1)}
	s, err := New("5 * * * *", time.UTC, job, 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if !s.Trigger(true) {
		t.Fatalf("first Trigger should start")
	}
	<-job.called
	if !s.Running() {
		t.Fatalf("scheduler should report running")
	}
	if s.RunOnce(false) {
		t.Fatalf("RunOnce should be skipped while a run is in progress")
	}
	if s.Trigger(true) {
		t.Fatalf("Trigger should be rejected while a run is in progress")
	}
	close(job.block)

	deadline := time.Now().Add(2 * time.Second)
	for s.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Running() {
		t.Fatalf("run did not finish")
	}
	if len(job.calls) != 1 {
		t.Fatalf("job should have run once, got %d", len(job.calls))
	}
}

func TestTriggerReservesSlotBeforeReturning(t *testing.T) {
	job := &fakeJob{block: make(chan struct{}), called: make(chan struct{}, 1)}
	s, err := New("5 * * * *", time.UTC, job, 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if !s.Trigger(true) {
		t.Fatalf("Trigger should start")
	}
	// 不等 goroutine 开始，执行位必须已被占住
	if !s.Running() {
		t.Fatalf("scheduler should be running right after Trigger returns")
	}
	if s.RunOnce(false) {
		t.Fatalf("cron run should be skipped while a triggered run is pending")
	}
	<-job.called
	close(job.block)

	deadline := time.Now().Add(2 * time.Second)
	for s.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	job.mu.Lock()
	defer job.mu.Unlock()
	if len(job.calls) != 1 || job.calls[0] != true {
		t.Fatalf("calls = %v, want the forced run only", job.calls)
	}
}
