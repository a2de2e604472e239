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

package status

import (
	"time"

	"gitlab.com/tozd/go/errors"
)

// 📊 Status is the outcome of one action on one path
type Status int

const (
	StatusUnknown     Status = iota
	StatusArchived           // File written into an archive
	StatusCopied             // File copied into a backup directory
	StatusRemoved            // File deleted by cleanup
	StatusWouldRemove        // File qualifies for cleanup but this is a dry run
	StatusMoved              // File moved into its destination folder
	StatusRetained           // File matched but is too young to remove
	StatusSkipped            // File left alone (no rule, already in place)
	StatusExcluded           // Path matched an exclusion pattern
	StatusFailed             // Action attempted and failed
)

// String returns a string representation of Status
func (s Status) String() string {
	switch s {
	case StatusArchived:
		return "archived"
	case StatusCopied:
		return "copied"
	case StatusRemoved:
		return "removed"
	case StatusWouldRemove:
		return "would_remove"
	case StatusMoved:
		return "moved"
	case StatusRetained:
		return "retained"
	case StatusSkipped:
		return "skipped"
	case StatusExcluded:
		return "excluded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) Status {
	for st := StatusArchived; st <= StatusFailed; st++ {
		if st.String() == s {
			return st
		}
	}
	return StatusUnknown
}

// Done reports whether the status counts as a processed item.
func (s Status) Done() bool {
	switch s {
	case StatusArchived, StatusCopied, StatusRemoved, StatusWouldRemove, StatusMoved:
		return true
	}
	return false
}

// 📄 Action is a single outcome recorded by an operation
type Action struct {
	Status Status // What happened
	Path   string // Source path
	Target string // Destination path, when there is one
	Size   int64  // Size of the file in bytes
	Reason string // Why a path was skipped, excluded or retained
	Err    error  // Cause of a failure
}

// 📦 Result aggregates everything one operation did.
// It is created at operation start and mutated only by that operation.
type Result struct {
	Op       string
	RunID    string
	DryRun   bool
	Started  time.Time
	Finished time.Time

	Processed int
	Failed    int
	Skipped   int

	// BytesBefore is the size of the inputs the operation acted on.
	// BytesAfter is what is left on disk for them once it is done: the
	// archive size for a backup, the bytes still present after cleanup.
	BytesBefore int64
	BytesAfter  int64

	// Target is the archive file or backup directory produced, if any.
	Target string

	Actions []Action
}

// 🏭 NewResult starts a result for op
func NewResult(op string, started time.Time) *Result {
	return &Result{Op: op, Started: started}
}

// Add records a and updates the counters.
func (r *Result) Add(a Action) {
	r.Actions = append(r.Actions, a)
	switch {
	case a.Status.Done():
		r.Processed++
	case a.Status == StatusFailed:
		r.Failed++
	case a.Status == StatusSkipped, a.Status == StatusExcluded, a.Status == StatusRetained:
		r.Skipped++
	}
}

// Finish stamps the end time.
func (r *Result) Finish(at time.Time) {
	r.Finished = at
}

// Duration is the wall time between start and finish.
func (r *Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Freed is BytesBefore minus BytesAfter, never negative. A dry run reports
// what a live run would free.
func (r *Result) Freed() int64 {
	if r.DryRun {
		return r.BytesBefore
	}
	if r.BytesAfter >= r.BytesBefore {
		return 0
	}
	return r.BytesBefore - r.BytesAfter
}

// Count returns how many actions have status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, a := range r.Actions {
		if a.Status == s {
			n++
		}
	}
	return n
}

// Filter returns the actions with status s, in the order they happened.
func (r *Result) Filter(s Status) []Action {
	var out []Action
	for _, a := range r.Actions {
		if a.Status == s {
			out = append(out, a)
		}
	}
	return out
}

// Paths returns the source paths of the actions with status s.
func (r *Result) Paths(s Status) []string {
	var out []string
	for _, a := range r.Filter(s) {
		out = append(out, a.Path)
	}
	return out
}

// 🚨 Err joins the errors of every failed action, or returns nil.
func (r *Result) Err() error {
	var errs []error
	for _, a := range r.Actions {
		if a.Status == StatusFailed && a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
