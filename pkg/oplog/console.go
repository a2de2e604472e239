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

package oplog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/walteh/housekeep/pkg/status"
)

// 🖥️ ConsoleSink prints events for a person watching the terminal
type ConsoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// 🏭 NewConsoleSink writes to w. Skipped, excluded and retained paths are only
// shown when verbose is set.
func NewConsoleSink(w io.Writer, verbose bool) *ConsoleSink {
	return &ConsoleSink{w: w, verbose: verbose}
}

func (c *ConsoleSink) Record(_ context.Context, ev Event) error {
	printer, msg := c.render(ev)
	if printer == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	printer.WithWriter(c.w).Println(msg)
	return nil
}

func (c *ConsoleSink) render(ev Event) (*pterm.PrefixPrinter, string) {
	msg := ev.Path
	if ev.Target != "" {
		msg += " → " + ev.Target
	}
	if ev.Size > 0 {
		msg += fmt.Sprintf(" (%s)", humanize.IBytes(uint64(ev.Size)))
	}

	switch ev.Action {
	case ActionStarted:
		title := ev.Op
		if ev.DryRun {
			title += " (dry run)"
		}
		return pterm.Info.WithPrefix(pterm.Prefix{Text: "🚀", Style: pterm.Info.Prefix.Style}), fmt.Sprintf("%s %s", title, ev.Path)
	case ActionFinished:
		if ev.Error != "" {
			return pterm.Error.WithPrefix(pterm.Prefix{Text: "❌", Style: pterm.Error.Prefix.Style}), fmt.Sprintf("%s failed: %s", ev.Op, ev.Error)
		}
		return pterm.Success.WithPrefix(pterm.Prefix{Text: "✅", Style: pterm.Success.Prefix.Style}), fmt.Sprintf("%s done", ev.Op)
	}

	switch status.ParseStatus(ev.Action) {
	case status.StatusArchived, status.StatusCopied:
		return pterm.Success.WithPrefix(pterm.Prefix{Text: "📦", Style: pterm.Success.Prefix.Style}), msg
	case status.StatusMoved:
		return pterm.Success.WithPrefix(pterm.Prefix{Text: "✨", Style: pterm.Success.Prefix.Style}), msg
	case status.StatusRemoved:
		return pterm.Warning.WithPrefix(pterm.Prefix{Text: "🗑️", Style: pterm.Warning.Prefix.Style}), msg
	case status.StatusWouldRemove:
		return pterm.Info.WithPrefix(pterm.Prefix{Text: "👀", Style: pterm.Info.Prefix.Style}), "would remove " + msg
	case status.StatusFailed:
		return pterm.Error.WithPrefix(pterm.Prefix{Text: "❌", Style: pterm.Error.Prefix.Style}), fmt.Sprintf("%s: %s", msg, ev.Error)
	case status.StatusSkipped, status.StatusExcluded, status.StatusRetained:
		if !c.verbose {
			return nil, ""
		}
		if ev.Reason != "" {
			msg += " [" + ev.Reason + "]"
		}
		return pterm.Description.WithPrefix(pterm.Prefix{Text: "⏭️", Style: pterm.Description.Prefix.Style}), ev.Action + " " + msg
	}
	return pterm.Info.WithPrefix(pterm.Prefix{Text: "•", Style: pterm.Info.Prefix.Style}), ev.Action + " " + msg
}
