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

// Package resolve turns user supplied paths into canonical absolute paths.
package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/walteh/housekeep/pkg/fserr"
	"gitlab.com/tozd/go/errors"
)

// 🏠 expandHome replaces a leading ~ with the user's home directory
func expandHome(raw string) (string, error) {
	if raw != "~" && !strings.HasPrefix(raw, "~/") && !strings.HasPrefix(raw, "~"+string(filepath.Separator)) {
		return raw, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, raw[1:]), nil
}

// 🎯 Path returns the canonical absolute form of raw.
//
// Symlinks are resolved when the path exists; a path that does not exist yet
// is returned cleaned and absolute so it can be created later.
func Path(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fserr.NotFound("resolve", raw)
	}

	expanded, err := expandHome(raw)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Errorf("making %q absolute: %w", raw, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, nil
		}
		return "", fserr.IO("resolve", abs, err)
	}
	return resolved, nil
}

// 📂 ExistingDir resolves raw and requires it to be an existing directory
func ExistingDir(raw string) (string, error) {
	p, err := Path(raw)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fserr.NotFound("resolve", p)
		}
		return "", fserr.IO("resolve", p, err)
	}
	if !info.IsDir() {
		return "", fserr.NotADirectory("resolve", p)
	}
	return p, nil
}

// 🏗️ EnsureDir resolves raw and creates it (with parents) when missing
func EnsureDir(raw string) (string, error) {
	p, err := Path(raw)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(p)
	switch {
	case err == nil && !info.IsDir():
		return "", fserr.NotADirectory("ensure", p)
	case err == nil:
		return p, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fserr.IO("ensure", p, err)
	}

	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fserr.New(fserr.ErrIO, "ensure", p, err)
	}

	// the directory may sit behind a symlinked parent
	return Path(p)
}

// Within reports whether child is root itself or lies beneath it.
// Both paths must already be canonical.
func Within(root, child string) bool {
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Disjoint reports whether neither path contains the other.
func Disjoint(a, b string) bool {
	return !Within(a, b) && !Within(b, a)
}
