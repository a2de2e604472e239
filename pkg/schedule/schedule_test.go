package schedule

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/housekeep/pkg/config"
	"github.com/walteh/housekeep/pkg/operation"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func newRunner(t *testing.T) *operation.Runner {
	t.Helper()
	op, err := operation.New(operation.Options{})
	require.NoError(t, err)
	return operation.NewRunner(op, 1)
}

func TestSchedulerRunsJobs(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("pdf"), 0o644))

	cfg := &config.Config{Jobs: []config.Job{
		{Name: "sort", Schedule: "@every 1s", Organize: &config.OrganizeJob{Dir: dir}},
		{Name: "manual", Clean: &config.CleanJob{Dir: dir}},
	}}

	var mu sync.Mutex
	var got []operation.JobResult
	s, err := New(ctx, cfg, newRunner(t), Options{
		Location: time.UTC,
		OnResult: func(r operation.JobResult) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, r)
		},
	})
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 1, "only jobs with a schedule are registered")
	assert.Equal(t, "sort", entries[0].Job)
	assert.Equal(t, "@every 1s", entries[0].Schedule)

	s.Start()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "sort", got[0].Job)
	assert.NoError(t, got[0].Err)
	assert.FileExists(t, filepath.Join(dir, "Documents", "PDFs", "report.pdf"))
	assert.False(t, s.Entries()[0].Next.IsZero())
}

func TestSchedulerNeedsScheduledJobs(t *testing.T) {
	cfg := &config.Config{Jobs: []config.Job{{Name: "manual", Clean: &config.CleanJob{Dir: t.TempDir()}}}}
	_, err := New(testContext(t), cfg, newRunner(t), Options{})
	assert.ErrorIs(t, err, ErrNothingScheduled)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	cfg := &config.Config{Jobs: []config.Job{{Name: "x", Schedule: "not a spec", Clean: &config.CleanJob{Dir: t.TempDir()}}}}
	_, err := New(testContext(t), cfg, newRunner(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduling job x")
}

func TestNextRuns(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		spec string
		want []time.Time
	}{
		{
			name: "daily_at_two",
			spec: "0 2 * * *",
			want: []time.Time{
				time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC),
				time.Date(2025, 1, 2, 2, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "hourly_descriptor",
			spec: "@hourly",
			want: []time.Time{
				time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC),
				time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRuns(tt.spec, from, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NextRuns("61 * * * *", from, 1)
	assert.Error(t, err)
}
