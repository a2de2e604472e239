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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func init() {
	color.NoColor = true
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusArchived, "archived"},
		{StatusCopied, "copied"},
		{StatusRemoved, "removed"},
		{StatusWouldRemove, "would_remove"},
		{StatusMoved, "moved"},
		{StatusRetained, "retained"},
		{StatusSkipped, "skipped"},
		{StatusExcluded, "excluded"},
		{StatusFailed, "failed"},
		{StatusUnknown, "unknown"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
			if tt.status != Status(99) {
				assert.Equal(t, tt.status, ParseStatus(tt.want))
			}
		})
	}
}

func TestResultCounters(t *testing.T) {
	res := NewResult("clean", time.Unix(0, 0))
	res.Add(Action{Status: StatusRemoved, Path: "a", Size: 10})
	res.Add(Action{Status: StatusWouldRemove, Path: "b", Size: 5})
	res.Add(Action{Status: StatusRetained, Path: "c"})
	res.Add(Action{Status: StatusExcluded, Path: "d"})
	res.Add(Action{Status: StatusFailed, Path: "e", Err: errors.New("boom")})

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Count(StatusRemoved))
	assert.Equal(t, []string{"a"}, res.Paths(StatusRemoved))

	err := res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestResultErrNilWithoutFailures(t *testing.T) {
	res := NewResult("organize", time.Now())
	res.Add(Action{Status: StatusMoved, Path: "a"})
	assert.NoError(t, res.Err())
}

func TestResultFreedAndDuration(t *testing.T) {
	start := time.Unix(100, 0)
	res := NewResult("clean", start)
	res.BytesBefore = 100
	res.BytesAfter = 30
	assert.Equal(t, int64(70), res.Freed())
	assert.Zero(t, res.Duration())

	res.Finish(start.Add(2 * time.Second))
	assert.Equal(t, 2*time.Second, res.Duration())

	res.BytesAfter = 200
	assert.Zero(t, res.Freed())
}

func TestResultFreedOnDryRun(t *testing.T) {
	res := NewResult("clean", time.Unix(100, 0))
	res.DryRun = true
	res.BytesBefore = 300
	res.BytesAfter = 300

	assert.Equal(t, int64(300), res.Freed())
}

func TestFormatAction(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   []string
	}{
		{
			name:   "moved_with_target",
			action: Action{Status: StatusMoved, Path: "report.pdf", Target: "Documents/PDFs/report.pdf", Size: 2048},
			want:   []string{"✓", "moved", "report.pdf → Documents/PDFs/report.pdf", "2.0 KiB"},
		},
		{
			name:   "failed_with_error",
			action: Action{Status: StatusFailed, Path: "locked.txt", Err: errors.New("permission denied")},
			want:   []string{"!", "failed", "locked.txt", "permission denied"},
		},
		{
			name:   "excluded_with_reason",
			action: Action{Status: StatusExcluded, Path: "node_modules", Reason: "node_modules"},
			want:   []string{"-", "excluded", "[node_modules]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatAction(tt.action)
			assert.True(t, strings.HasPrefix(got, "    "))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	t.Run("clean_dry_run", func(t *testing.T) {
		res := NewResult("clean", time.Now())
		res.DryRun = true
		res.BytesBefore = 3 * 1024
		res.BytesAfter = 3 * 1024
		res.Add(Action{Status: StatusWouldRemove, Path: "a"})

		got := FormatSummary(res)
		assert.Contains(t, got, "clean (dry run)")
		assert.Contains(t, got, "processed: 1")
		assert.Contains(t, got, "would free: 3.0 KiB")
	})

	t.Run("clean_live", func(t *testing.T) {
		res := NewResult("clean", time.Now())
		res.BytesBefore = 2048
		res.BytesAfter = 1024

		assert.Contains(t, FormatSummary(res), "freed: 1.0 KiB")
	})

	t.Run("backup", func(t *testing.T) {
		res := NewResult("backup", time.Now())
		res.BytesBefore = 1 << 20
		res.BytesAfter = 1 << 10
		res.Target = "/backups/src_20250101_000000_nightly.zip"

		got := FormatSummary(res)
		assert.Contains(t, got, "source: 1.0 MiB")
		assert.Contains(t, got, "archive: 1.0 KiB")
		assert.Contains(t, got, "target: /backups/src_20250101_000000_nightly.zip")
	})
}

func TestFormatPreview(t *testing.T) {
	res := NewResult("clean", time.Now())
	for i := range 13 {
		res.Add(Action{Status: StatusWouldRemove, Path: fmt.Sprintf("f%02d.tmp", i)})
	}

	got := FormatPreview(res, StatusWouldRemove)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "  - f00.tmp", lines[0])
	assert.Equal(t, "  - f09.tmp", lines[9])
	assert.Equal(t, "  ... and 3 more files", lines[10])

	assert.Empty(t, FormatPreview(res, StatusRemoved))
}
