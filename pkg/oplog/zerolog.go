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

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/status"
)

// 🪵 ZerologSink writes events as structured log entries.
// With a nil Logger the logger in the context is used.
type ZerologSink struct {
	Logger *zerolog.Logger
}

func (z ZerologSink) Record(ctx context.Context, ev Event) error {
	logger := z.Logger
	if logger == nil {
		logger = zerolog.Ctx(ctx)
	}

	e := logger.WithLevel(levelFor(ev))
	if e == nil {
		return nil
	}

	e = e.Str("run_id", ev.RunID).
		Str("op", ev.Op).
		Str("action", ev.Action)
	if ev.Path != "" {
		e = e.Str("path", ev.Path)
	}
	if ev.Target != "" {
		e = e.Str("target", ev.Target)
	}
	if ev.Size > 0 {
		e = e.Int64("size", ev.Size)
	}
	if ev.DryRun {
		e = e.Bool("dry_run", true)
	}
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	if ev.Error != "" {
		e = e.Str("error", ev.Error)
	}
	e.Msg("housekeep " + ev.Action)
	return nil
}

func levelFor(ev Event) zerolog.Level {
	switch status.ParseStatus(ev.Action) {
	case status.StatusFailed:
		return zerolog.WarnLevel
	case status.StatusSkipped, status.StatusExcluded, status.StatusRetained:
		return zerolog.DebugLevel
	}
	if ev.Action == ActionFinished && ev.Error != "" {
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
