package oplog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func init() {
	pterm.DisableColor()
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestRecorderTrack(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	mem := &MemorySink{}
	rec := NewRecorder(mem, "clean", true).WithClock(fixedClock())
	res := status.NewResult("clean", time.Now())

	rec.Started(ctx, "/data")
	rec.Track(ctx, res, status.Action{Status: status.StatusWouldRemove, Path: "/data/a.tmp", Size: 12})
	rec.Track(ctx, res, status.Action{Status: status.StatusFailed, Path: "/data/b.tmp", Err: errors.New("denied")})
	rec.Finished(ctx, res, nil)

	events := mem.Events()
	require.Len(t, events, 4)
	assert.Equal(t, []string{"started", "would_remove", "failed", "finished"}, mem.Actions())

	for _, ev := range events {
		assert.Equal(t, rec.RunID(), ev.RunID)
		assert.Equal(t, "clean", ev.Op)
		assert.True(t, ev.DryRun)
		assert.Equal(t, fixedClock()(), ev.Time)
	}
	assert.Equal(t, int64(12), events[1].Size)
	assert.Equal(t, "denied", events[2].Error)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
}

func TestRecorderSurvivesFailingSink(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("disk full") })
	mem := &MemorySink{}

	rec := NewRecorder(Multi(failing, mem), "organize", false)
	res := status.NewResult("organize", time.Now())
	rec.Track(ctx, res, status.Action{Status: status.StatusMoved, Path: "a.pdf"})

	assert.Len(t, mem.Events(), 1)
	assert.Equal(t, 1, res.Processed)
}

func TestMultiJoinsErrors(t *testing.T) {
	a := SinkFunc(func(context.Context, Event) error { return errors.New("a broke") })
	b := SinkFunc(func(context.Context, Event) error { return errors.New("b broke") })

	err := Multi(a, nil, Multi(b)).Record(context.Background(), Event{Action: "moved"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a broke")
	assert.Contains(t, err.Error(), "b broke")
}

func TestNilSinkDiscards(t *testing.T) {
	rec := NewRecorder(nil, "backup", false)
	res := status.NewResult("backup", time.Now())
	rec.Track(context.Background(), res, status.Action{Status: status.StatusArchived, Path: "a"})
	assert.Equal(t, 1, res.Processed)
	assert.NotEmpty(t, rec.RunID())
}

func TestFileSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "housekeep.jsonl")
	ctx := context.Background()

	for run := range 2 {
		sink, err := OpenFile(path)
		require.NoError(t, err)
		rec := NewRecorder(sink, "organize", false).WithClock(fixedClock())
		res := status.NewResult("organize", time.Now())
		rec.Track(ctx, res, status.Action{Status: status.StatusMoved, Path: "a.pdf", Target: "Documents/PDFs/a.pdf", Size: int64(run + 1)})
		require.NoError(t, sink.Close())
		require.NoError(t, sink.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	events, err := ReadEvents(f)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Size)
	assert.Equal(t, int64(2), events[1].Size)
	assert.NotEqual(t, events[0].RunID, events[1].RunID)
	assert.Equal(t, "Documents/PDFs/a.pdf", events[1].Target)
}

func TestFileSinkClosed(t *testing.T) {
	sink, err := OpenFile(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.Record(context.Background(), Event{Action: "moved"})
	assert.Error(t, err)
}

func TestReadEventsRejectsGarbage(t *testing.T) {
	_, err := ReadEvents(strings.NewReader("{\"action\":\"moved\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestConsoleSink(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		event   Event
		want    string
	}{
		{
			name:  "moved",
			event: Event{Op: "organize", Action: "moved", Path: "a.pdf", Target: "Documents/PDFs/a.pdf"},
			want:  "a.pdf → Documents/PDFs/a.pdf",
		},
		{
			name:  "would_remove",
			event: Event{Op: "clean", Action: "would_remove", Path: "old.log", Size: 2048},
			want:  "would remove old.log (2.0 KiB)",
		},
		{
			name:  "failure",
			event: Event{Op: "clean", Action: "failed", Path: "locked.log", Error: "permission denied"},
			want:  "locked.log: permission denied",
		},
		{
			name:  "skipped_hidden_by_default",
			event: Event{Op: "organize", Action: "skipped", Path: "notes.xyz"},
			want:  "",
		},
		{
			name:    "skipped_shown_when_verbose",
			verbose: true,
			event:   Event{Op: "organize", Action: "skipped", Path: "notes.xyz", Reason: "no rule"},
			want:    "skipped notes.xyz [no rule]",
		},
		{
			name:  "finished_with_error",
			event: Event{Op: "backup", Action: "finished", Error: "reading a.txt: denied"},
			want:  "backup failed: reading a.txt: denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, tt.verbose)
			require.NoError(t, sink.Record(context.Background(), tt.event))

			if tt.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestZerologSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	sink := ZerologSink{Logger: &logger}

	require.NoError(t, sink.Record(context.Background(), Event{Op: "organize", Action: "skipped", Path: "x"}))
	assert.Empty(t, buf.String())

	require.NoError(t, sink.Record(context.Background(), Event{Op: "clean", Action: "failed", Path: "y", Error: "denied"}))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"path":"y"`)
	assert.Contains(t, buf.String(), `"error":"denied"`)
}
