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

package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/config"
	"github.com/walteh/housekeep/pkg/resolve"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ErrOverlappingJobs is returned when a parallel plan has jobs whose
// directories contain one another.
var ErrOverlappingJobs = errors.Base("overlapping jobs")

// ErrUnknownJob is returned when a job name is not in the config.
var ErrUnknownJob = errors.Base("unknown job")

// 📋 JobResult is the outcome of one job
type JobResult struct {
	Job      string
	Kind     string
	Result   *status.Result // nil when the job failed before doing anything
	Err      error
	Duration time.Duration
}

// 🏃 Runner executes config jobs through an Operator
type Runner struct {
	op       Operator
	parallel int
}

// 🏗️ NewRunner creates a new runner. parallel above one runs that many jobs
// at a time.
func NewRunner(op Operator, parallel int) *Runner {
	return &Runner{op: op, parallel: parallel}
}

// ▶️ RunJob executes a single job. Per-file failures recorded in the result
// are returned as the job error.
func (r *Runner) RunJob(ctx context.Context, cfg *config.Config, job config.Job) JobResult {
	logger := zerolog.Ctx(ctx).With().Str("job", job.Name).Str("kind", job.Kind()).Logger()
	ctx = logger.WithContext(ctx)

	out := JobResult{Job: job.Name, Kind: job.Kind()}
	start := time.Now()

	var err error
	switch {
	case job.Backup != nil:
		out.Result, err = r.op.Backup(ctx, BackupRequest{
			Source:      job.Backup.Source,
			Dest:        job.Backup.Dest,
			ArchiveName: job.Backup.Archive,
			Exclude:     job.Backup.Exclude,
			Level:       job.Backup.Level,
		})
	case job.Clean != nil:
		out.Result, err = r.op.Clean(ctx, CleanRequest{
			Directory:     job.Clean.Dir,
			Pattern:       job.Clean.Pattern,
			OlderThanDays: job.Clean.OlderThanDays,
			DryRun:        job.Clean.DryRun,
			Recursive:     job.Clean.Recursive,
			Exclude:       job.Clean.Exclude,
		})
	case job.Organize != nil:
		out.Result, err = r.op.Organize(ctx, OrganizeRequest{
			Directory: job.Organize.Dir,
			Rules:     cfg.RulesFor(job),
		})
	default:
		err = errors.Errorf("job %q has no action", job.Name)
	}

	if err == nil && out.Result != nil {
		err = out.Result.Err()
	}
	out.Duration = time.Since(start)
	if err != nil {
		out.Err = errors.Errorf("job %s: %w", job.Name, err)
		logger.Error().Err(err).Dur("took", out.Duration).Msg("job failed")
	} else {
		logger.Info().Dur("took", out.Duration).Msg("job completed")
	}
	return out
}

// 🏃 Run executes the named jobs, or every job when no names are given.
// A failing job does not stop the others; every failure is joined into the
// returned error.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, names ...string) ([]JobResult, error) {
	jobs, err := selectJobs(cfg, names)
	if err != nil {
		return nil, err
	}

	results := make([]JobResult, len(jobs))
	if r.parallel > 1 && len(jobs) > 1 {
		if err := checkDisjoint(jobs); err != nil {
			return nil, err
		}
		r.runParallel(ctx, cfg, jobs, results)
	} else {
		r.runSync(ctx, cfg, jobs, results)
	}

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if len(errs) == 0 {
		return results, nil
	}
	return results, errors.Join(errs...)
}

// 🔄 runSync runs jobs one after another
func (r *Runner) runSync(ctx context.Context, cfg *config.Config, jobs []config.Job, results []JobResult) {
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = JobResult{Job: job.Name, Kind: job.Kind(), Err: errors.Errorf("job %s not started: %w", job.Name, err)}
			continue
		}
		results[i] = r.RunJob(ctx, cfg, job)
	}
}

// ⚡ runParallel runs up to r.parallel jobs at a time
func (r *Runner) runParallel(ctx context.Context, cfg *config.Config, jobs []config.Job, results []JobResult) {
	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = JobResult{Job: job.Name, Kind: job.Kind(), Err: errors.Errorf("job %s not started: %w", job.Name, err)}
				return nil
			}
			results[i] = r.RunJob(ctx, cfg, job)
			return nil
		})
	}
	_ = g.Wait()
}

func selectJobs(cfg *config.Config, names []string) ([]config.Job, error) {
	if len(names) == 0 {
		return cfg.Jobs, nil
	}
	jobs := make([]config.Job, 0, len(names))
	for _, name := range names {
		j, ok := cfg.Job(name)
		if !ok {
			return nil, errors.Errorf("%w: %s", ErrUnknownJob, name)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// checkDisjoint refuses plans where two jobs touch nested directories.
func checkDisjoint(jobs []config.Job) error {
	roots := make([][]string, len(jobs))
	for i, j := range jobs {
		for _, raw := range j.Roots() {
			p, err := resolve.Path(raw)
			if err != nil {
				return errors.Errorf("resolving roots of job %s: %w", j.Name, err)
			}
			roots[i] = append(roots[i], p)
		}
	}

	for i := range jobs {
		for k := i + 1; k < len(jobs); k++ {
			for _, a := range roots[i] {
				for _, b := range roots[k] {
					if !resolve.Disjoint(a, b) {
						return errors.Errorf("%w: %s (%s) and %s (%s)", ErrOverlappingJobs, jobs[i].Name, a, jobs[k].Name, b)
					}
				}
			}
		}
	}
	return nil
}
