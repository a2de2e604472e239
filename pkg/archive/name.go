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
	"path"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// TimestampLayout is the YYYYMMDD_HHMMSS stamp used in backup names.
const TimestampLayout = "20060102_150405"

// ErrUnsafeEntry is returned when an archive entry name would escape the root.
var ErrUnsafeEntry = errors.Base("unsafe archive entry")

// Stamp formats t with TimestampLayout.
func Stamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// 🏷️ ArchiveFileName is <source>_<stamp>_<name>.zip; .zip is not doubled
func ArchiveFileName(sourceBase, stamp, name string) string {
	if !strings.HasSuffix(name, ".zip") {
		name += ".zip"
	}
	return sourceBase + "_" + stamp + "_" + name
}

// 🏷️ CopyDirName is <source>_<stamp>
func CopyDirName(sourceBase, stamp string) string {
	return sourceBase + "_" + stamp
}

// EntryName validates a slash separated root-relative path for use inside an
// archive.
func EntryName(rel string) (string, error) {
	switch {
	case rel == "", rel == ".":
		return "", errors.Errorf("%w: empty name", ErrUnsafeEntry)
	case strings.HasPrefix(rel, "/"), filepath.VolumeName(filepath.FromSlash(rel)) != "":
		return "", errors.Errorf("%w: %q is absolute", ErrUnsafeEntry, rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", errors.Errorf("%w: %q leaves the root", ErrUnsafeEntry, rel)
		}
	}
	if path.Clean(rel) != rel {
		return "", errors.Errorf("%w: %q is not clean", ErrUnsafeEntry, rel)
	}
	return rel, nil
}
