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

// Package fserr defines the error kinds shared by every housekeep operation.
//
// Kinds are sentinels that callers match with errors.Is. The concrete error
// returned by the operations is *Error, which records the failing step and
// path and unwraps to both the kind and the underlying cause.
package fserr

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Error kinds
var (
	// ErrNotFound means a path that must exist does not.
	ErrNotFound = errors.Base("not found")
	// ErrNotADirectory means a directory was required but something else was given.
	ErrNotADirectory = errors.Base("not a directory")
	// ErrIO covers read, write, move and remove failures on a single entry.
	ErrIO = errors.Base("i/o failure")
	// ErrCollision means a backup destination directory already exists.
	ErrCollision = errors.Base("destination already exists")
)

// 📦 Error is a kind plus the step, path and cause that produced it
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// 🏭 New builds an *Error of the given kind
func New(kind error, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// NotFound reports that path is missing.
func NotFound(op, path string) *Error {
	return New(ErrNotFound, op, path, nil)
}

// NotADirectory reports that path is not a directory.
func NotADirectory(op, path string) *Error {
	return New(ErrNotADirectory, op, path, nil)
}

// Collision reports that path already exists.
func Collision(op, path string) *Error {
	return New(ErrCollision, op, path, nil)
}

// IO wraps cause as an ErrIO failure. The cause stays reachable, so a
// vanished entry still matches fs.ErrNotExist. ErrNotFound is reserved for
// roots that do not exist and is only produced by NotFound.
func IO(op, path string, cause error) *Error {
	return New(ErrIO, op, path, cause)
}

// Kind returns the kind of err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrNotADirectory, ErrCollision, ErrIO} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
