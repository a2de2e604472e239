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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	actionIndent = 4  // spaces to indent action lines
	statusWidth  = 13 // Width for status text
	previewLimit = 10 // paths shown before collapsing into "... and N more"
)

// 🎯 FormatAction renders one action as a single console line
func FormatAction(a Action) string {
	var prefix string
	switch a.Status {
	case StatusArchived, StatusCopied, StatusMoved:
		prefix = color.GreenString("✓")
	case StatusRemoved:
		prefix = color.RedString("✗")
	case StatusWouldRemove:
		prefix = color.YellowString("?")
	case StatusFailed:
		prefix = color.RedString("!")
	default:
		prefix = color.HiBlackString("-")
	}

	line := fmt.Sprintf("%s%s %-*s %s",
		strings.Repeat(" ", actionIndent),
		prefix,
		statusWidth, a.Status.String(),
		a.Path,
	)
	if a.Target != "" {
		line += " → " + a.Target
	}
	if a.Size > 0 {
		line += color.HiBlackString(" (%s)", humanize.IBytes(uint64(a.Size)))
	}
	switch {
	case a.Err != nil:
		line += color.RedString(": %v", a.Err)
	case a.Reason != "":
		line += color.HiBlackString(" [%s]", a.Reason)
	}
	return line
}

// 📋 FormatSummary renders the one-paragraph summary printed after an operation
func FormatSummary(r *Result) string {
	var b strings.Builder

	title := r.Op
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&b, "%s %s\n", color.New(color.Bold).Sprint("📊"), color.New(color.Bold).Sprint(title))

	fmt.Fprintf(&b, "   processed: %s  skipped: %s  failed: %s\n",
		color.GreenString("%d", r.Processed),
		color.HiBlackString("%d", r.Skipped),
		failedColor(r.Failed).Sprintf("%d", r.Failed),
	)

	switch r.Op {
	case "clean":
		verb := "freed"
		if r.DryRun {
			verb = "would free"
		}
		fmt.Fprintf(&b, "   %s: %s\n", verb, humanize.IBytes(uint64(r.Freed())))
	case "backup":
		fmt.Fprintf(&b, "   source: %s  archive: %s\n",
			humanize.IBytes(uint64(r.BytesBefore)),
			humanize.IBytes(uint64(r.BytesAfter)))
	default:
		fmt.Fprintf(&b, "   bytes: %s\n", humanize.IBytes(uint64(r.BytesBefore)))
	}

	if r.Target != "" {
		fmt.Fprintf(&b, "   target: %s\n", r.Target)
	}
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(&b, "   took: %s\n", d.Round(time.Millisecond))
	}
	return b.String()
}

// 🔍 FormatPreview lists the paths with status s, at most ten of them,
// followed by how many were left out
func FormatPreview(r *Result, s Status) string {
	paths := r.Paths(s)
	if len(paths) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range paths {
		if i == previewLimit {
			fmt.Fprintf(&b, "  ... and %d more files\n", len(paths)-previewLimit)
			break
		}
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	return b.String()
}

func failedColor(n int) *color.Color {
	if n > 0 {
		return color.New(color.FgRed, color.Bold)
	}
	return color.New(color.FgHiBlack)
}
