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

package organize

import (
	"io"
	"os"

	"github.com/walteh/housekeep/pkg/fserr"
)

// 🚚 move renames src to dst, copying and then removing src when the two
// live on different filesystems
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fserr.IO("move", src, err)
	}
	return copyThenRemove(src, dst)
}

func copyThenRemove(src, dst string) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return fserr.IO("stat", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fserr.IO("read", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fserr.IO("create", dst, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fserr.IO("copy", src, err)
	}
	if err = out.Sync(); err != nil {
		return fserr.IO("sync", dst, err)
	}
	if err = out.Close(); err != nil {
		return fserr.IO("close", dst, err)
	}
	if err = os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fserr.IO("chtimes", dst, err)
	}
	if err = os.Remove(src); err != nil {
		return fserr.IO("remove", src, err)
	}
	return nil
}
