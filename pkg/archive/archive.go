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

// Package archive backs up a directory tree, either into a deflate
// compressed zip or as a plain recursive copy.
//
// Both forms are staged next to their final location and renamed into place
// only once every file has been written, so a failed backup never leaves a
// partial archive or directory behind.
package archive

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/oplog"
	"github.com/walteh/housekeep/pkg/pattern"
	"github.com/walteh/housekeep/pkg/resolve"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// OpName is the operation name used in results and the operation log.
const OpName = "backup"

// 🔧 Options configures a backup
type Options struct {
	// Source is the directory to back up.
	Source string
	// Dest is the directory the backup is written into. It is created if missing.
	Dest string
	// ArchiveName is the zip file name suffix. Required by CreateArchive.
	ArchiveName string
	// Exclude lists glob patterns for files and directories to leave out.
	Exclude []string
	// Level is the deflate level from 1 (fastest) to 9 (smallest).
	// Zero selects the default level.
	Level int
	// Sink receives one event per action. Nil discards.
	Sink oplog.Sink
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// 📦 Manifest lists what a backup wrote
type Manifest struct {
	Source  string  // Resolved source root
	Target  string  // Archive file or backup directory
	Entries []Entry // Files written, in walk order
	Bytes   int64   // Total size of the files written
	Result  *status.Result
}

// Files is the number of files written.
func (m *Manifest) Files() int {
	return len(m.Entries)
}

// Rel returns the archive-relative path of every entry.
func (m *Manifest) Rel() []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Rel)
	}
	return out
}

// run is the resolved state shared by CreateArchive and CopyDirectory
type run struct {
	source string
	dest   string
	// the destination when it sits strictly inside the source; pruned from the walk
	nestedDest string
	stamp      string
	exclude    *pattern.Set
	rec        *oplog.Recorder
	now        func() time.Time
	res        *status.Result
	man        *Manifest
}

func (o Options) prepare(ctx context.Context) (*run, error) {
	source, err := resolve.ExistingDir(o.Source)
	if err != nil {
		return nil, errors.Errorf("resolving source: %w", err)
	}

	exclude, err := pattern.NewSet(o.Exclude...)
	if err != nil {
		return nil, errors.Errorf("compiling exclude patterns: %w", err)
	}

	dest, err := resolve.EnsureDir(o.Dest)
	if err != nil {
		return nil, errors.Errorf("preparing destination: %w", err)
	}

	now := o.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	rec := oplog.NewRecorder(o.Sink, OpName, false).WithClock(now)
	res := status.NewResult(OpName, started)
	res.RunID = rec.RunID()

	zerolog.Ctx(ctx).Debug().
		Str("source", source).
		Str("dest", dest).
		Strs("exclude", exclude.Patterns()).
		Msg("backup resolved")

	var nested string
	if dest != source && resolve.Within(source, dest) {
		nested = dest
	}

	return &run{
		source:     source,
		dest:       dest,
		nestedDest: nested,
		stamp:      Stamp(started),
		exclude:    exclude,
		rec:        rec,
		now:        now,
		res:        res,
		man:        &Manifest{Source: source, Result: res},
	}, nil
}

func (r *run) onExclude(ctx context.Context) func(rel, abs string, isDir bool, reason string) {
	return func(rel, abs string, isDir bool, reason string) {
		r.rec.Track(ctx, r.res, status.Action{Status: status.StatusExcluded, Path: rel, Reason: reason})
	}
}

// skips lists the absolute paths the walk must not enter.
func (r *run) skips(paths ...string) map[string]bool {
	out := map[string]bool{}
	for _, p := range paths {
		out[p] = true
	}
	if r.nestedDest != "" {
		out[r.nestedDest] = true
	}
	return out
}

func (r *run) finish(ctx context.Context, err error) {
	r.res.Finish(r.now())
	r.rec.Finished(ctx, r.res, err)
}

func exists(p string) (bool, error) {
	_, err := os.Lstat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fserr.IO("stat", p, err)
	}
}

// 🗜️ CreateArchive writes every non-excluded file under Source into
// Dest/<source>_<stamp>_<ArchiveName>.zip. Any file that cannot be read
// aborts the backup and no archive is left behind.
func CreateArchive(ctx context.Context, opts Options) (*Manifest, error) {
	if opts.ArchiveName == "" {
		return nil, errors.New("archive name is required")
	}
	level := opts.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	if level < flate.BestSpeed && level != flate.DefaultCompression || level > flate.BestCompression {
		return nil, errors.Errorf("compression level %d out of range", opts.Level)
	}

	r, err := opts.prepare(ctx)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(r.dest, ArchiveFileName(filepath.Base(r.source), r.stamp, opts.ArchiveName))
	r.man.Target = target
	r.res.Target = target

	logger := zerolog.Ctx(ctx).With().Str("archive", target).Logger()
	logger.Info().Str("source", r.source).Msg("creating compressed backup")
	r.rec.Started(ctx, r.source)

	if err := r.writeArchive(logger.WithContext(ctx), target, level); err != nil {
		r.finish(ctx, err)
		return r.man, errors.Errorf("creating archive: %w", err)
	}

	r.finish(ctx, nil)
	logger.Info().Int("files", r.man.Files()).Int64("bytes", r.man.Bytes).Msg("backup completed")
	return r.man, nil
}

func (r *run) writeArchive(ctx context.Context, target string, level int) (err error) {
	if ok, err := exists(target); err != nil {
		return err
	} else if ok {
		return fserr.Collision("archive", target)
	}

	tmp, err := os.CreateTemp(r.dest, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fserr.IO("create", r.dest, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	cw := &countingWriter{w: tmp}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	w := &walker{
		root:      r.source,
		exclude:   r.exclude,
		skip:      r.skips(target, tmpName),
		onExclude: r.onExclude(ctx),
	}

	err = w.walk(ctx, func(e Entry) error {
		name, err := EntryName(e.Rel)
		if err != nil {
			return err
		}
		if err := addFile(zw, e, name); err != nil {
			return err
		}
		r.man.Entries = append(r.man.Entries, e)
		r.man.Bytes += e.Size
		r.rec.Track(ctx, r.res, status.Action{Status: status.StatusArchived, Path: e.Rel, Size: e.Size})
		return nil
	})
	if err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fserr.IO("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fserr.IO("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fserr.IO("close", tmpName, err)
	}

	// a second run within the same second may have produced the same name
	if ok, err := exists(target); err != nil {
		return err
	} else if ok {
		return fserr.Collision("archive", target)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fserr.IO("rename", target, err)
	}
	syncDir(r.dest)

	r.res.BytesBefore = r.man.Bytes
	r.res.BytesAfter = cw.n
	return nil
}

func addFile(zw *zip.Writer, e Entry, name string) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return fserr.IO("read", e.Path, err)
	}
	defer f.Close()

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: e.ModTime,
	}
	hdr.SetMode(e.Mode)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fserr.IO("write", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fserr.IO("read", e.Path, err)
	}
	return nil
}

// countingWriter tracks how many bytes reach the archive file
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// syncDir flushes a rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
