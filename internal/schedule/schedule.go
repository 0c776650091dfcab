// Package schedule runs a job on a cron schedule. A tick that arrives while
// the previous run is still going is skipped.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs weekly on Monday at 06:00.
const DefaultSpec = "0 6 * * 1"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Scheduler owns a cron instance with a single entry.
type Scheduler struct {
	spec  string
	sched cron.Schedule
	job   Job
	log   *zap.Logger
	cron  *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	jobs    sync.WaitGroup
	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
}

// Validate reports whether spec is a schedule New accepts.
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// New parses spec and returns a stopped Scheduler. An empty spec means
// DefaultSpec.
func New(spec string, job Job, log *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	if job == nil {
		return nil, fmt.Errorf("schedule: job is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Scheduler{spec: spec, sched: sched, job: job, log: log}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cronLogger{log.Sugar()})),
	)
	s.cron.Schedule(sched, cron.FuncJob(s.tick))
	return s, nil
}

// Start begins dispatching ticks. Jobs receive a context derived from ctx
// that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("spec", s.spec), zap.Time("next", s.Next(time.Now())))
}

// Stop cancels a running job, scheduled or triggered, and waits for it to
// return. No job starts after Stop.
func (s *Scheduler) Stop() {
	stopped := s.cron.Stop()

	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-stopped.Done()
	s.jobs.Wait()
	s.log.Info("scheduler stopped", zap.Int64("runs", s.runs.Load()), zap.Int64("skipped", s.skipped.Load()))
}

// Trigger runs the job now on the calling goroutine, subject to the same
// overlap rule as scheduled ticks.
func (s *Scheduler) Trigger() {
	s.tick()
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// Runs returns the number of completed runs.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skipped returns the number of ticks dropped because a run was in progress.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// begin registers a job with Stop and returns its context. It reports false
// once the scheduler is stopped.
func (s *Scheduler) begin() (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, false
	}
	s.jobs.Add(1)
	if s.ctx == nil {
		return context.Background(), true
	}
	return s.ctx, true
}

func (s *Scheduler) tick() {
	ctx, ok := s.begin()
	if !ok {
		s.log.Debug("scheduler stopped, ignoring tick")
		return
	}
	defer s.jobs.Done()

	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Warn("previous run still in progress, skipping tick")
		return
	}
	defer s.running.Store(false)

	started := time.Now()
	s.log.Info("scheduled run started")
	err := s.job(ctx)
	s.runs.Add(1)
	if err != nil {
		s.log.Error("scheduled run failed", zap.Error(err), zap.Duration("duration", time.Since(started)))
		return
	}
	s.log.Info("scheduled run finished",
		zap.Duration("duration", time.Since(started)),
		zap.Time("next", s.Next(time.Now())),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
