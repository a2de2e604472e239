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

// Package oplog is the append-only record of every action housekeep plans or
// performs. Events are handed to a Sink; sinks decide where they end up.
package oplog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// Lifecycle actions written around the per-path ones.
const (
	ActionStarted  = "started"
	ActionFinished = "finished"
)

// 📝 Event is one line of the operation log
type Event struct {
	Time   time.Time `json:"time"`
	RunID  string    `json:"run_id"`
	Op     string    `json:"op"`
	Action string    `json:"action"`
	Path   string    `json:"path,omitempty"`
	Target string    `json:"target,omitempty"`
	Size   int64     `json:"size,omitempty"`
	DryRun bool      `json:"dry_run,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// 🔌 Sink receives events in the order they happen
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Record(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, Event) error { return nil })

type multi []Sink

// 🔀 Multi fans events out to every sink. All sinks see every event; their
// errors are joined.
func Multi(sinks ...Sink) Sink {
	var flat multi
	for _, s := range sinks {
		switch v := s.(type) {
		case nil:
		case multi:
			flat = append(flat, v...)
		default:
			flat = append(flat, v)
		}
	}
	return flat
}

func (m multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// 🧪 MemorySink keeps events in memory. Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Actions returns the action names of the recorded events.
func (m *MemorySink) Actions() []string {
	var out []string
	for _, ev := range m.Events() {
		out = append(out, ev.Action)
	}
	return out
}

// 🎙️ Recorder stamps events for one operation run and forwards them to a sink.
// A failing sink never stops the operation; the failure is logged instead.
type Recorder struct {
	sink   Sink
	op     string
	runID  string
	dryRun bool
	now    func() time.Time
}

// 🏭 NewRecorder starts a recorder with a fresh run id. A nil sink discards.
func NewRecorder(sink Sink, op string, dryRun bool) *Recorder {
	if sink == nil {
		sink = Nop
	}
	return &Recorder{
		sink:   sink,
		op:     op,
		runID:  uuid.NewString(),
		dryRun: dryRun,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RunID identifies every event of this run.
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) emit(ctx context.Context, ev Event) {
	ev.Time = r.now()
	ev.RunID = r.runID
	ev.Op = r.op
	ev.DryRun = r.dryRun
	if err := r.sink.Record(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("action", ev.Action).Str("path", ev.Path).Msg("recording operation event")
	}
}

// Started records the beginning of a run over root.
func (r *Recorder) Started(ctx context.Context, root string) {
	r.emit(ctx, Event{Action: ActionStarted, Path: root})
}

// 📄 Track records a and adds it to res
func (r *Recorder) Track(ctx context.Context, res *status.Result, a status.Action) {
	res.Add(a)
	ev := Event{
		Action: a.Status.String(),
		Path:   a.Path,
		Target: a.Target,
		Size:   a.Size,
		Reason: a.Reason,
	}
	if a.Err != nil {
		ev.Error = a.Err.Error()
	}
	r.emit(ctx, ev)
}

// Finished records the end of a run with its totals.
func (r *Recorder) Finished(ctx context.Context, res *status.Result, err error) {
	ev := Event{
		Action: ActionFinished,
		Target: res.Target,
		Size:   res.BytesBefore,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.emit(ctx, ev)
}
