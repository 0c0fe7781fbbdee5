package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/models"
)

// RunFunc executes one scheduled run. The engine passes a detached copy
// of the schedule; the callback never shares memory with engine state.
type RunFunc func(ctx context.Context, sched models.Schedule)

// JobID derives the trigger identity for a schedule name. Spaces become
// underscores so the id is safe in logs and filenames.
func JobID(name string) string {
	return "query_" + strings.ReplaceAll(name, " ", "_")
}

// JobInfo is a snapshot of one registered trigger.
type JobInfo struct {
	ID           string
	ScheduleName string
	NextFire     time.Time
}

type job struct {
	id       string
	sched    models.Schedule
	cancel   context.CancelFunc
	nextFire time.Time
}

// Engine owns the in-memory triggers. It holds no persistent state: the
// schedule store is the source of truth and Replay rebuilds every
// trigger from it at startup. Adding a job whose id already exists
// replaces the old trigger atomically, so a name can never fire twice.
type Engine struct {
	mu   sync.Mutex
	jobs map[string]*job

	run RunFunc
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source. Tests use this to pin
// next-fire computation.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates a trigger engine that invokes run on every fire.
func New(logger *zap.Logger, run RunFunc, opts ...EngineOption) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		jobs:   make(map[string]*job),
		run:    run,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("scheduler"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Add registers a trigger for the schedule. An existing trigger with the
// same id is stopped and replaced before the new one starts.
func (e *Engine) Add(sched models.Schedule) error {
	if err := sched.Cadence.Validate(); err != nil {
		return err
	}

	id := JobID(sched.Name)
	snapshot := sched.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.jobs[id]; ok {
		old.cancel()
		e.logger.Info("replacing trigger",
			zap.String("job_id", id),
			zap.String("schedule", sched.Name))
	}

	jobCtx, jobCancel := context.WithCancel(e.ctx)
	j := &job{
		id:       id,
		sched:    snapshot,
		cancel:   jobCancel,
		nextFire: nextFire(snapshot.Cadence, e.now()),
	}
	e.jobs[id] = j

	e.logger.Info("trigger registered",
		zap.String("job_id", id),
		zap.String("cadence", snapshot.Cadence.Describe()),
		zap.Time("next_fire", j.nextFire))

	e.wg.Add(1)
	go e.runJob(jobCtx, j)

	return nil
}

// Remove stops and drops the trigger for the named schedule.
func (e *Engine) Remove(name string) error {
	id := JobID(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return fmt.Errorf("%w: trigger %q", apperrors.ErrNotFound, id)
	}
	j.cancel()
	delete(e.jobs, id)

	e.logger.Info("trigger removed", zap.String("job_id", id))
	return nil
}

// Jobs returns a snapshot of the registered triggers.
func (e *Engine) Jobs() []JobInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]JobInfo, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, JobInfo{
			ID:           j.id,
			ScheduleName: j.sched.Name,
			NextFire:     j.nextFire,
		})
	}
	return out
}

// Replay rebuilds triggers from persisted schedules at startup. A
// schedule whose cadence no longer validates is logged and skipped; it
// stays in the store untouched so the user can repair it.
func (e *Engine) Replay(schedules []models.Schedule) {
	for i := range schedules {
		if err := e.Add(schedules[i]); err != nil {
			e.logger.Warn("skipping schedule with invalid cadence",
				zap.String("schedule", schedules[i].Name),
				zap.Error(err))
		}
	}
}

// Stop cancels every trigger and waits for in-flight timer goroutines to
// exit. Runs already handed to the RunFunc observe cancellation through
// their context.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()

	e.mu.Lock()
	e.jobs = make(map[string]*job)
	e.mu.Unlock()
}

func (e *Engine) runJob(ctx context.Context, j *job) {
	defer e.wg.Done()

	for {
		e.mu.Lock()
		next := nextFire(j.sched.Cadence, e.now())
		j.nextFire = next
		e.mu.Unlock()

		timer := time.NewTimer(next.Sub(e.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		e.logger.Info("trigger fired",
			zap.String("job_id", j.id),
			zap.String("schedule", j.sched.Name))

		e.run(ctx, j.sched.Clone())
	}
}

// nextFire computes the first instant strictly after now that matches
// the cadence, in now's location.
func nextFire(c models.Cadence, now time.Time) time.Time {
	switch c.Frequency {
	case models.FreqWeekly:
		return nextWeekly(c, now)
	case models.FreqMonthly:
		return nextMonthly(c, now)
	default:
		return nextDaily(c, now)
	}
}

func nextDaily(c models.Cadence, now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func nextWeekly(c models.Cadence, now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	target := time.Weekday(*c.DayOfWeek)

	days := int(target-t.Weekday()+7) % 7
	t = t.AddDate(0, 0, days)
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// nextMonthly clamps the requested day to the last day of short months,
// so day 31 fires on Apr 30 and day 30 fires on Feb 28 (29 in leap
// years).
func nextMonthly(c models.Cadence, now time.Time) time.Time {
	t := monthlyAt(now.Year(), now.Month(), *c.DayOfMonth, c.Hour, c.Minute, now.Location())
	if !t.After(now) {
		year, month := now.Year(), now.Month()
		if month == time.December {
			year, month = year+1, time.January
		} else {
			month++
		}
		t = monthlyAt(year, month, *c.DayOfMonth, c.Hour, c.Minute, now.Location())
	}
	return t
}

func monthlyAt(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
