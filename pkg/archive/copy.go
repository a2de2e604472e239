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

package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 📂 CopyDirectory copies every non-excluded file under Source into
// Dest/<source>_<stamp>, keeping the tree layout. An existing directory of
// that name is an ErrCollision; nothing is merged into it.
func CopyDirectory(ctx context.Context, opts Options) (*Manifest, error) {
	r, err := opts.prepare(ctx)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(r.dest, CopyDirName(filepath.Base(r.source), r.stamp))
	r.man.Target = target
	r.res.Target = target

	logger := zerolog.Ctx(ctx).With().Str("backup_dir", target).Logger()
	logger.Info().Str("source", r.source).Msg("creating directory backup")
	r.rec.Started(ctx, r.source)

	if err := r.copyTree(logger.WithContext(ctx), target); err != nil {
		r.finish(ctx, err)
		return r.man, errors.Errorf("copying directory: %w", err)
	}

	r.finish(ctx, nil)
	logger.Info().Int("files", r.man.Files()).Int64("bytes", r.man.Bytes).Msg("backup completed")
	return r.man, nil
}

func (r *run) copyTree(ctx context.Context, target string) (err error) {
	if ok, err := exists(target); err != nil {
		return err
	} else if ok {
		return fserr.Collision("copy", target)
	}

	staging, err := os.MkdirTemp(r.dest, "."+filepath.Base(target)+".*.partial")
	if err != nil {
		return fserr.IO("create", r.dest, err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(staging); rmErr != nil {
				zerolog.Ctx(ctx).Warn().Err(rmErr).Str("staging", staging).Msg("removing partial backup")
			}
		}
	}()

	w := &walker{
		root:      r.source,
		exclude:   r.exclude,
		skip:      r.skips(target, staging),
		onExclude: r.onExclude(ctx),
		onDir: func(rel string, mode fs.FileMode) error {
			dir := filepath.Join(staging, filepath.FromSlash(rel))
			if err := os.MkdirAll(dir, mode|0o700); err != nil {
				return fserr.IO("mkdir", dir, err)
			}
			return nil
		},
	}

	err = w.walk(ctx, func(e Entry) error {
		if _, err := EntryName(e.Rel); err != nil {
			return err
		}
		dst := filepath.Join(staging, filepath.FromSlash(e.Rel))
		n, err := copyFile(e, dst)
		if err != nil {
			return err
		}
		r.man.Entries = append(r.man.Entries, e)
		r.man.Bytes += n
		r.rec.Track(ctx, r.res, status.Action{
			Status: status.StatusCopied,
			Path:   e.Rel,
			Target: filepath.Join(target, filepath.FromSlash(e.Rel)),
			Size:   n,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if ok, err := exists(target); err != nil {
		return err
	} else if ok {
		return fserr.Collision("copy", target)
	}
	if err := os.Rename(staging, target); err != nil {
		return fserr.IO("rename", target, err)
	}
	syncDir(r.dest)

	r.res.BytesBefore = r.man.Bytes
	r.res.BytesAfter = r.man.Bytes
	return nil
}

// copyFile copies the content, permission bits and modification time of e.
func copyFile(e Entry, dst string) (int64, error) {
	in, err := os.Open(e.Path)
	if err != nil {
		return 0, fserr.IO("read", e.Path, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fserr.IO("mkdir", filepath.Dir(dst), err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, e.Mode|0o200)
	if err != nil {
		return 0, fserr.IO("create", dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fserr.IO("copy", e.Path, err)
	}
	if err := out.Close(); err != nil {
		return n, fserr.IO("close", dst, err)
	}

	if err := os.Chmod(dst, e.Mode); err != nil {
		return n, fserr.IO("chmod", dst, err)
	}
	if err := os.Chtimes(dst, time.Time{}, e.ModTime); err != nil {
		return n, fserr.IO("chtimes", dst, err)
	}
	return n, nil
}
