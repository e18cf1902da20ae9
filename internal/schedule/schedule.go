// Package schedule implements the supplemented scheduled-request feature
// (SPEC_FULL.md §12): a prompt re-submitted to the Orchestrator on a cron
// schedule, e.g. "check CI status every morning". It is a single-process,
// in-memory scoped-down descendant of the teacher's internal/tasks cron
// scheduler - no distributed locking, no persisted schedule table, since
// the Non-goals exclude multi-process orchestration.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Runner executes a scheduled prompt the same way a live user turn would.
// cmd/agentcore adapts *orchestrator.Orchestrator to this interface since
// Orchestrator.Execute returns a richer ExecutionResult than the scheduler
// needs.
type Runner interface {
	Execute(ctx context.Context, prompt string) RunResult
}

// RunResult is the subset of orchestrator.ExecutionResult the scheduler
// cares about logging.
type RunResult struct {
	Success bool
	Error   error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, prompt string) RunResult

func (f RunnerFunc) Execute(ctx context.Context, prompt string) RunResult { return f(ctx, prompt) }

// Job is one scheduled request.
type Job struct {
	ID     string
	Cron   string
	Prompt string
}

type scheduledJob struct {
	Job
	schedule cron.Schedule
	next     time.Time
}

// Scheduler runs a fixed set of Jobs against a Runner, firing each one at
// most once per due tick. It holds no state across restarts: on Start it
// computes each Job's next run time from "now" and never looks back.
type Scheduler struct {
	runner Runner
	logger *slog.Logger

	pollInterval time.Duration

	mu   sync.Mutex
	jobs []*scheduledJob

	stop chan struct{}
	done chan struct{}
}

// New builds a Scheduler from a config job list. Jobs with an invalid cron
// expression are dropped with a logged warning rather than failing the
// whole scheduler - one bad entry shouldn't stop the rest from running.
func New(jobs []Job, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		runner:       runner,
		logger:       logger.With("component", "schedule"),
		pollInterval: time.Second,
	}
	now := time.Now()
	for _, j := range jobs {
		sched, err := parser.Parse(j.Cron)
		if err != nil {
			s.logger.Warn("dropping job with invalid cron expression", "job_id", j.ID, "cron", j.Cron, "error", err)
			continue
		}
		s.jobs = append(s.jobs, &scheduledJob{Job: j, schedule: sched, next: sched.Next(now)})
	}
	return s
}

// Start begins the poll loop. It is a no-op if already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop halts the poll loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop := s.stop
	done := s.done
	s.stop = nil
	s.done = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := make([]*scheduledJob, 0)
	for _, j := range s.jobs {
		if !now.Before(j.next) {
			due = append(due, j)
			j.next = j.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.runJob(ctx, j)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j *scheduledJob) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic running scheduled job", "job_id", j.ID, "panic", r)
		}
	}()

	s.logger.Info("running scheduled job", "job_id", j.ID)
	result := s.runner.Execute(ctx, j.Prompt)
	if !result.Success {
		s.logger.Error("scheduled job failed", "job_id", j.ID, "error", result.Error)
		return
	}
	s.logger.Info("scheduled job completed", "job_id", j.ID)
}

// NextRun reports the next scheduled time for a job, for status/debugging
// surfaces. Returns an error if the job id is unknown.
func (s *Scheduler) NextRun(id string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j.next, nil
		}
	}
	return time.Time{}, fmt.Errorf("schedule: unknown job %q", id)
}
