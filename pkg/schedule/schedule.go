// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package schedule runs configured jobs on their cron schedules.
package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/config"
	"github.com/walteh/housekeep/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// ErrNothingScheduled is returned when no job carries a schedule.
var ErrNothingScheduled = errors.Base("no scheduled jobs")

// 🔧 Options configures a Scheduler
type Options struct {
	// Location the schedules are evaluated in. Nil means time.Local.
	Location *time.Location
	// OnResult is called after every run. It may be called concurrently for
	// different jobs.
	OnResult func(operation.JobResult)
}

// 📅 Entry is one registered job
type Entry struct {
	Job      string
	Schedule string
	Next     time.Time
	Prev     time.Time
}

// ⏰ Scheduler runs each scheduled job of a config. A job never overlaps
// itself: a tick that arrives while the previous run is still busy is skipped.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	runner   *operation.Runner
	onResult func(operation.JobResult)
	ids      map[string]cron.EntryID
	specs    map[string]string
	ctx      context.Context
}

// 🏭 New registers every job of cfg that has a schedule.
func New(ctx context.Context, cfg *config.Config, runner *operation.Runner, opts Options) (*Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	logger := cronLogger{logger: zerolog.Ctx(ctx)}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		cfg:      cfg,
		runner:   runner,
		onResult: opts.OnResult,
		ids:      map[string]cron.EntryID{},
		specs:    map[string]string{},
		ctx:      ctx,
	}

	jobs := cfg.Scheduled()
	if len(jobs) == 0 {
		return nil, ErrNothingScheduled
	}
	for _, job := range jobs {
		sched, err := config.ParseSchedule(job.Schedule)
		if err != nil {
			return nil, errors.Errorf("scheduling job %s: %w", job.Name, err)
		}
		s.ids[job.Name] = s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(job) }))
		s.specs[job.Name] = job.Schedule
	}
	return s, nil
}

func (s *Scheduler) fire(job config.Job) {
	logger := zerolog.Ctx(s.ctx)
	if s.ctx.Err() != nil {
		return
	}
	logger.Info().Str("job", job.Name).Msg("scheduled run starting")
	res := s.runner.RunJob(s.ctx, s.cfg, job)
	if s.onResult != nil {
		s.onResult(res)
	}
}

// ▶️ Start begins running jobs in the background.
func (s *Scheduler) Start() {
	zerolog.Ctx(s.ctx).Info().Int("jobs", len(s.ids)).Msg("scheduler started")
	s.cron.Start()
}

// ⏹️ Stop stops new runs and waits for running jobs to finish, or for ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		zerolog.Ctx(s.ctx).Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// Entries lists the registered jobs ordered by their next run.
func (s *Scheduler) Entries() []Entry {
	out := make([]Entry, 0, len(s.ids))
	for name, id := range s.ids {
		e := s.cron.Entry(id)
		out = append(out, Entry{Job: name, Schedule: s.specs[name], Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Next.Equal(out[j].Next) {
			return out[i].Job < out[j].Job
		}
		return out[i].Next.Before(out[j].Next)
	})
	return out
}

// NextRuns returns the next n activation times of spec after from.
func NextRuns(spec string, from time.Time, n int) ([]time.Time, error) {
	sched, err := config.ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	for t := from; len(out) < n; {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
