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

// Package organize sorts the files of a directory into subfolders by
// extension.
package organize

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/oplog"
	"github.com/walteh/housekeep/pkg/resolve"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// OpName is the operation name used in results and the operation log.
const OpName = "organize"

// timestampLayout matches the backup names.
const timestampLayout = "20060102_150405"

// 🔧 Options configures an organize run
type Options struct {
	// Dir is the directory whose immediate files are sorted.
	Dir string
	// Rules maps extensions to subfolders. Nil means DefaultRules().
	Rules Rules
	// Sink receives one event per action. Nil discards.
	Sink oplog.Sink
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// 🗂️ Organize moves every file directly inside Dir whose extension has a
// rule into Dir/<dest>. A name already taken at the destination gets the run
// timestamp appended to its stem; nothing is overwritten. Files without a
// rule are left alone. A file that cannot be moved is recorded as failed and
// stays where it was.
func Organize(ctx context.Context, opts Options) (*status.Result, error) {
	dir, err := resolve.ExistingDir(opts.Dir)
	if err != nil {
		return nil, errors.Errorf("resolving directory: %w", err)
	}

	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	table := rules.index()

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	started := now()
	stamp := started.Format(timestampLayout)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fserr.IO("list", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	logger := zerolog.Ctx(ctx).With().Str("dir", dir).Logger()
	ctx = logger.WithContext(ctx)

	rec := oplog.NewRecorder(opts.Sink, OpName, false).WithClock(now)
	res := status.NewResult(OpName, started)
	res.RunID = rec.RunID()

	logger.Info().Int("rules", len(table)).Msg("organizing files")
	rec.Started(ctx, dir)

	var runErr error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			runErr = errors.Errorf("organizing stopped: %w", err)
			break
		}

		src := filepath.Join(dir, entry.Name())
		info, ok := regularFile(src, entry)
		if !ok {
			continue
		}

		_, ext := SplitExt(entry.Name())
		ext = NormalizeExt(ext)
		sub, ok := table[ext]
		if !ok {
			rec.Track(ctx, res, status.Action{Status: status.StatusSkipped, Path: src, Size: info.Size(), Reason: "no rule"})
			continue
		}

		destDir := filepath.Join(dir, filepath.FromSlash(sub))
		target, err := place(destDir, entry.Name(), stamp)
		if err == nil {
			err = move(src, target)
		}
		if err != nil {
			logger.Warn().Err(err).Str("file", src).Msg("could not organize file")
			rec.Track(ctx, res, status.Action{Status: status.StatusFailed, Path: src, Size: info.Size(), Err: err})
			continue
		}

		logger.Debug().Str("file", entry.Name()).Str("target", target).Msg("moved")
		rec.Track(ctx, res, status.Action{Status: status.StatusMoved, Path: src, Target: target, Size: info.Size()})
		res.BytesBefore += info.Size()
	}
	res.BytesAfter = res.BytesBefore

	res.Finish(now())
	rec.Finished(ctx, res, runErr)
	logger.Info().Int("moved", res.Processed).Int("failed", res.Failed).Int("skipped", res.Skipped).Msg("organizing completed")
	return res, runErr
}

// regularFile follows symlinks so a link to a file is organized like a file.
func regularFile(p string, entry fs.DirEntry) (fs.FileInfo, bool) {
	if entry.IsDir() {
		return nil, false
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	return info, true
}

// 🎯 place creates destDir and picks a free name in it: the original name,
// then <stem>_<stamp><ext>, then <stem>_<stamp>_<n><ext>
func place(destDir, name, stamp string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fserr.IO("mkdir", destDir, err)
	}

	stem, ext := SplitExt(name)
	candidates := func(n int) string {
		switch n {
		case 0:
			return name
		case 1:
			return fmt.Sprintf("%s_%s%s", stem, stamp, ext)
		default:
			return fmt.Sprintf("%s_%s_%d%s", stem, stamp, n-1, ext)
		}
	}

	for n := 0; ; n++ {
		target := filepath.Join(destDir, candidates(n))
		_, err := os.Lstat(target)
		if errors.Is(err, fs.ErrNotExist) {
			return target, nil
		}
		if err != nil {
			return "", fserr.IO("stat", target, err)
		}
	}
}
