package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRunner struct {
	mu     sync.Mutex
	calls  []string
	result RunResult
}

func (r *countingRunner) Execute(ctx context.Context, prompt string) RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, prompt)
	return r.result
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestNewDropsJobsWithInvalidCron(t *testing.T) {
	runner := &countingRunner{result: RunResult{Success: true}}
	s := New([]Job{
		{ID: "good", Cron: "* * * * *", Prompt: "check CI"},
		{ID: "bad", Cron: "not a cron expression", Prompt: "noop"},
	}, runner, nil)

	if len(s.jobs) != 1 {
		t.Fatalf("expected 1 surviving job, got %d", len(s.jobs))
	}
	if s.jobs[0].ID != "good" {
		t.Fatalf("expected the valid job to survive, got %q", s.jobs[0].ID)
	}
}

func TestSchedulerRunsDueJobAndAdvancesNextRun(t *testing.T) {
	runner := &countingRunner{result: RunResult{Success: true}}
	s := New([]Job{{ID: "every-minute", Cron: "* * * * *", Prompt: "check CI status"}}, runner, nil)

	job := s.jobs[0]
	before := job.next

	s.tick(context.Background(), job.next)

	if runner.count() != 1 {
		t.Fatalf("expected 1 execution, got %d", runner.count())
	}
	if runner.calls[0] != "check CI status" {
		t.Fatalf("unexpected prompt passed to runner: %q", runner.calls[0])
	}
	if !job.next.After(before) {
		t.Fatalf("expected next run to advance past %v, got %v", before, job.next)
	}
}

func TestSchedulerSkipsJobNotYetDue(t *testing.T) {
	runner := &countingRunner{result: RunResult{Success: true}}
	s := New([]Job{{ID: "hourly", Cron: "0 * * * *", Prompt: "noop"}}, runner, nil)

	s.tick(context.Background(), time.Now())

	if runner.count() != 0 {
		t.Fatalf("expected no execution before the job is due, got %d", runner.count())
	}
}

func TestSchedulerRunJobRecoversFromPanic(t *testing.T) {
	s := New(nil, nil, nil)
	job := &scheduledJob{Job: Job{ID: "panicky"}}
	s.runner = RunnerFunc(func(ctx context.Context, prompt string) RunResult {
		panic("boom")
	})

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("runJob must recover internally, got panic: %v", r)
		}
	}()
	s.runJob(context.Background(), job)
}

func TestSchedulerLogsFailureWithoutStopping(t *testing.T) {
	runner := &countingRunner{result: RunResult{Success: false, Error: errors.New("boom")}}
	s := New([]Job{{ID: "flaky", Cron: "* * * * *", Prompt: "noop"}}, runner, nil)

	s.tick(context.Background(), s.jobs[0].next)
	if runner.count() != 1 {
		t.Fatalf("expected the job to still run once despite failing, got %d calls", runner.count())
	}
}

func TestStartStopIsIdempotentAndStoppable(t *testing.T) {
	runner := &countingRunner{result: RunResult{Success: true}}
	s := New([]Job{{ID: "every-minute", Cron: "* * * * *", Prompt: "noop"}}, runner, nil)
	s.pollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx) // no-op, must not deadlock or start a second loop

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop() // no-op
}

func TestNextRunReportsUnknownJob(t *testing.T) {
	s := New(nil, &countingRunner{}, nil)
	if _, err := s.NextRun("missing"); err == nil {
		t.Fatal("expected an error for an unknown job id")
	}
}
