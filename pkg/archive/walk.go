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
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/pattern"
)

// 📄 Entry is one regular file found under a source root
type Entry struct {
	Path    string      // Absolute path on disk
	Rel     string      // Slash separated path relative to the root
	Size    int64       // Size in bytes
	ModTime time.Time   // Modification time
	Mode    fs.FileMode // Permission bits
}

// 🚶 walker enumerates a tree depth-first in lexical order, pruning excluded
// directories and dropping excluded files
type walker struct {
	root    string
	exclude *pattern.Set
	// absolute paths that are never visited, e.g. the archive being written
	skip map[string]bool

	onExclude func(rel, abs string, isDir bool, reason string)
	onDir     func(rel string, mode fs.FileMode) error
}

func (w *walker) excluded(rel, abs string, isDir bool, reason string) {
	if w.onExclude != nil {
		w.onExclude(rel, abs, isDir, reason)
	}
}

func (w *walker) walk(ctx context.Context, visit func(Entry) error) error {
	logger := zerolog.Ctx(ctx)

	return filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fserr.IO("walk", p, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == w.root {
			return nil
		}

		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return fserr.IO("walk", p, err)
		}
		rel = filepath.ToSlash(rel)

		if w.skip[p] {
			logger.Debug().Str("path", p).Msg("skipping own output")
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if pat, ok := w.exclude.Match(rel, p, true); ok {
				logger.Debug().Str("dir", rel).Str("pattern", pat).Msg("pruning excluded directory")
				w.excluded(rel, p, true, pat)
				return filepath.SkipDir
			}
			if w.onDir != nil {
				info, err := d.Info()
				if err != nil {
					return fserr.IO("stat", p, err)
				}
				return w.onDir(rel, info.Mode().Perm())
			}
			return nil
		}

		if pat, ok := w.exclude.Match(rel, p, false); ok {
			logger.Debug().Str("file", rel).Str("pattern", pat).Msg("excluding file")
			w.excluded(rel, p, false, pat)
			return nil
		}

		var info fs.FileInfo
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			// links to files are read through, links to directories are not followed
			info, err = os.Stat(p)
			if err != nil {
				return fserr.IO("stat", p, err)
			}
			if info.IsDir() {
				w.excluded(rel, p, true, "symlinked directory")
				return nil
			}
		default:
			info, err = d.Info()
			if err != nil {
				return fserr.IO("stat", p, err)
			}
		}

		if !info.Mode().IsRegular() {
			w.excluded(rel, p, false, "not a regular file")
			return nil
		}

		return visit(Entry{
			Path:    p,
			Rel:     rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode().Perm(),
		})
	})
}
