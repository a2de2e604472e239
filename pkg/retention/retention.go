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

// Package retention removes files that match a pattern and are older than a
// number of days, or reports what it would remove in a dry run.
package retention

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/oplog"
	"github.com/walteh/housekeep/pkg/pattern"
	"github.com/walteh/housekeep/pkg/resolve"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// OpName is the operation name used in results and the operation log.
const OpName = "clean"

// Day is the unit of OlderThanDays.
const Day = 24 * time.Hour

// DefaultPattern selects every file directly inside the directory.
const DefaultPattern = "*"

// 🔧 Options configures a cleanup
type Options struct {
	// Dir is the directory to clean.
	Dir string
	// Pattern selects candidate files relative to Dir. Empty means DefaultPattern.
	Pattern string
	// OlderThanDays, when set, keeps files younger than this many days.
	OlderThanDays *int
	// DryRun reports what would be removed without touching anything.
	DryRun bool
	// Recursive applies Pattern at every depth below Dir.
	Recursive bool
	// Exclude protects matching files and directories from removal.
	Exclude []string
	// Sink receives one event per action. Nil discards.
	Sink oplog.Sink
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Days is a convenience for filling OlderThanDays.
func Days(n int) *int {
	return &n
}

// 📄 Candidate is a file selected by the pattern, with its age at the time the
// run started
type Candidate struct {
	Path    string // Absolute path
	Rel     string // Slash separated path relative to Dir
	Size    int64
	ModTime time.Time
	Age     time.Duration
}

// AgeDays is Age in fractional days.
func (c Candidate) AgeDays() float64 {
	return c.Age.Hours() / 24
}

// 📋 Plan partitions the candidates of one run
type Plan struct {
	Dir       string
	Pattern   string
	Now       time.Time
	Threshold time.Duration // zero when every candidate qualifies
	Qualify   []Candidate   // old enough to remove, in lexical order
	Retained  []Candidate   // too young
	Excluded  []Candidate   // protected by an exclusion pattern
	Bytes     int64         // total size of Qualify
}

// Qualifies applies the age threshold. The boundary is inclusive.
func Qualifies(age time.Duration, olderThanDays *int) bool {
	if olderThanDays == nil {
		return true
	}
	return age >= time.Duration(*olderThanDays)*Day
}

func (o Options) clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

func (o Options) selector() (string, error) {
	p := filepath.ToSlash(strings.TrimSpace(o.Pattern))
	if p == "" {
		p = DefaultPattern
	}
	if strings.HasPrefix(p, "/") {
		return "", errors.Errorf("%w: %q must be relative to the directory", pattern.ErrInvalidPattern, o.Pattern)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", errors.Errorf("%w: %q leaves the directory", pattern.ErrInvalidPattern, o.Pattern)
		}
	}
	if o.Recursive && !strings.HasPrefix(p, "**/") && p != "**" {
		p = "**/" + p
	}
	if !doublestar.ValidatePattern(p) {
		return "", errors.Errorf("%w: %q", pattern.ErrInvalidPattern, o.Pattern)
	}
	return p, nil
}

// 🔍 Evaluate selects and partitions candidates without changing anything
func Evaluate(ctx context.Context, opts Options) (*Plan, error) {
	dir, err := resolve.ExistingDir(opts.Dir)
	if err != nil {
		return nil, errors.Errorf("resolving directory: %w", err)
	}
	if opts.OlderThanDays != nil && *opts.OlderThanDays < 0 {
		return nil, errors.Errorf("older than days must not be negative, got %d", *opts.OlderThanDays)
	}
	glob, err := opts.selector()
	if err != nil {
		return nil, err
	}
	exclude, err := pattern.NewSet(opts.Exclude...)
	if err != nil {
		return nil, errors.Errorf("compiling exclude patterns: %w", err)
	}

	plan := &Plan{Dir: dir, Pattern: glob, Now: opts.clock()()}
	if opts.OlderThanDays != nil {
		plan.Threshold = time.Duration(*opts.OlderThanDays) * Day
	}

	logger := zerolog.Ctx(ctx)
	fsys := os.DirFS(dir)

	err = doublestar.GlobWalk(fsys, glob, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if !insideRoot(dir, abs) {
			logger.Debug().Str("file", rel).Msg("skipping file reached through a symlinked directory")
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fserr.IO("stat", abs, err)
		}

		c := Candidate{
			Path:    abs,
			Rel:     rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Age:     plan.Now.Sub(info.ModTime()),
		}

		if excludedBy(exclude, rel, dir) {
			plan.Excluded = append(plan.Excluded, c)
			return nil
		}

		if !Qualifies(c.Age, opts.OlderThanDays) {
			logger.Debug().Str("file", rel).Float64("age_days", c.AgeDays()).Msg("retaining young file")
			plan.Retained = append(plan.Retained, c)
			return nil
		}

		plan.Qualify = append(plan.Qualify, c)
		plan.Bytes += c.Size
		return nil
	}, doublestar.WithNoFollow())
	if err != nil {
		return nil, errors.Errorf("selecting files: %w", err)
	}

	for _, list := range [][]Candidate{plan.Qualify, plan.Retained, plan.Excluded} {
		sort.Slice(list, func(i, j int) bool { return list[i].Rel < list[j].Rel })
	}
	return plan, nil
}

// insideRoot reports whether the real parent of abs lies under root. Literal
// pattern segments can name a symlinked directory, so the walk alone does not
// keep candidates inside root.
func insideRoot(root, abs string) bool {
	parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return false
	}
	return resolve.Within(root, parent)
}

// excludedBy checks the file and each of its parent directories.
func excludedBy(set *pattern.Set, rel, root string) bool {
	if set.Empty() {
		return false
	}
	if set.Excludes(rel, path.Join(filepath.ToSlash(root), rel), false) {
		return true
	}
	for parent := path.Dir(rel); parent != "." && parent != "/"; parent = path.Dir(parent) {
		if set.Excludes(parent, path.Join(filepath.ToSlash(root), parent), true) {
			return true
		}
	}
	return false
}

// 🧹 Clean evaluates the options and removes every qualifying file unless it is
// a dry run. Removal failures are recorded and do not stop the run.
func Clean(ctx context.Context, opts Options) (*status.Result, error) {
	plan, err := Evaluate(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("dir", plan.Dir).Str("pattern", plan.Pattern).Logger()
	ctx = logger.WithContext(ctx)

	rec := oplog.NewRecorder(opts.Sink, OpName, opts.DryRun).WithClock(opts.clock())
	res := status.NewResult(OpName, plan.Now)
	res.RunID = rec.RunID()
	res.DryRun = opts.DryRun
	res.BytesBefore = plan.Bytes

	logger.Info().
		Int("qualifying", len(plan.Qualify)).
		Int("retained", len(plan.Retained)).
		Int64("bytes", plan.Bytes).
		Bool("dry_run", opts.DryRun).
		Msg("cleaning directory")
	rec.Started(ctx, plan.Dir)

	for _, c := range plan.Excluded {
		rec.Track(ctx, res, status.Action{Status: status.StatusExcluded, Path: c.Path, Size: c.Size, Reason: "excluded"})
	}
	for _, c := range plan.Retained {
		rec.Track(ctx, res, status.Action{
			Status: status.StatusRetained,
			Path:   c.Path,
			Size:   c.Size,
			Reason: fmt.Sprintf("%.1f days old", c.AgeDays()),
		})
	}

	var remaining int64
	var runErr error
	for i, c := range plan.Qualify {
		if err := ctx.Err(); err != nil {
			for _, left := range plan.Qualify[i:] {
				remaining += left.Size
			}
			runErr = errors.Errorf("cleaning stopped: %w", err)
			break
		}

		if opts.DryRun {
			rec.Track(ctx, res, status.Action{Status: status.StatusWouldRemove, Path: c.Path, Size: c.Size})
			continue
		}

		if err := os.Remove(c.Path); err != nil {
			ferr := fserr.IO("remove", c.Path, err)
			logger.Warn().Err(err).Str("file", c.Path).Msg("could not remove file")
			rec.Track(ctx, res, status.Action{Status: status.StatusFailed, Path: c.Path, Size: c.Size, Err: ferr})
			remaining += c.Size
			continue
		}
		rec.Track(ctx, res, status.Action{Status: status.StatusRemoved, Path: c.Path, Size: c.Size})
	}

	if opts.DryRun {
		res.BytesAfter = res.BytesBefore
	} else {
		res.BytesAfter = remaining
	}

	res.Finish(opts.clock()())
	rec.Finished(ctx, res, runErr)

	logger.Info().
		Int("removed", res.Count(status.StatusRemoved)).
		Int("failed", res.Failed).
		Int64("freed", res.Freed()).
		Msg("cleaning completed")

	return res, runErr
}
