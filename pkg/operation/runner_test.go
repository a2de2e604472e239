package operation

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/housekeep/pkg/config"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/organize"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🔧 fakeOperator records calls and tracks how many run at once
type fakeOperator struct {
	mu      sync.Mutex
	calls   []string
	rules   map[string]organize.Rules
	active  atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
	failDir string
}

func (f *fakeOperator) enter(name string) func() {
	n := f.active.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	time.Sleep(f.delay)
	return func() { f.active.Add(-1) }
}

func (f *fakeOperator) result(op, dir string) (*status.Result, error) {
	if dir == f.failDir {
		return nil, fserr.NotFound(op, dir)
	}
	return status.NewResult(op, time.Now()), nil
}

func (f *fakeOperator) Backup(_ context.Context, req BackupRequest) (*status.Result, error) {
	defer f.enter("backup:" + req.Source)()
	return f.result("backup", req.Source)
}

func (f *fakeOperator) Clean(_ context.Context, req CleanRequest) (*status.Result, error) {
	defer f.enter("clean:" + req.Directory)()
	return f.result("clean", req.Directory)
}

func (f *fakeOperator) Organize(_ context.Context, req OrganizeRequest) (*status.Result, error) {
	defer f.enter("organize:" + req.Directory)()
	f.mu.Lock()
	if f.rules == nil {
		f.rules = map[string]organize.Rules{}
	}
	f.rules[req.Directory] = req.Rules
	f.mu.Unlock()
	return f.result("organize", req.Directory)
}

func cleanJob(name, dir string) config.Job {
	return config.Job{Name: name, Clean: &config.CleanJob{Dir: dir}}
}

func TestRunnerSequential(t *testing.T) {
	root := tempDir(t)
	cfg := &config.Config{
		Rules: []config.RuleConfig{{Extensions: []string{"md"}, Dest: "Notes"}},
		Jobs: []config.Job{
			{Name: "b", Backup: &config.BackupJob{Source: filepath.Join(root, "src"), Dest: filepath.Join(root, "dst")}},
			cleanJob("c", filepath.Join(root, "tmp")),
			{Name: "o", Organize: &config.OrganizeJob{Dir: filepath.Join(root, "inbox")}},
		},
	}
	fake := &fakeOperator{}

	results, err := NewRunner(fake, 1).Run(testContext(t), cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{
		"backup:" + filepath.Join(root, "src"),
		"clean:" + filepath.Join(root, "tmp"),
		"organize:" + filepath.Join(root, "inbox"),
	}, fake.calls)
	assert.Equal(t, []string{"b", "c", "o"}, []string{results[0].Job, results[1].Job, results[2].Job})
	assert.Equal(t, config.KindOrganize, results[2].Kind)
	assert.Equal(t, organize.Rules{{Ext: "md", Dest: "Notes"}}, fake.rules[filepath.Join(root, "inbox")])
	assert.EqualValues(t, 1, fake.peak.Load())
}

func TestRunnerSelectsJobs(t *testing.T) {
	root := tempDir(t)
	cfg := &config.Config{Jobs: []config.Job{cleanJob("a", filepath.Join(root, "a")), cleanJob("b", filepath.Join(root, "b"))}}
	fake := &fakeOperator{}

	results, err := NewRunner(fake, 1).Run(testContext(t), cfg, "b")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"clean:" + filepath.Join(root, "b")}, fake.calls)

	_, err = NewRunner(fake, 1).Run(testContext(t), cfg, "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunnerFailureDoesNotStopOthers(t *testing.T) {
	root := tempDir(t)
	bad := filepath.Join(root, "bad")
	cfg := &config.Config{Jobs: []config.Job{cleanJob("bad", bad), cleanJob("good", filepath.Join(root, "good"))}}
	fake := &fakeOperator{failDir: bad}

	results, err := NewRunner(fake, 1).Run(testContext(t), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, fserr.ErrNotFound)
	assert.Contains(t, err.Error(), "job bad")

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Result)
	assert.NoError(t, results[1].Err)
	assert.NotNil(t, results[1].Result)
}

func TestRunnerParallel(t *testing.T) {
	root := tempDir(t)
	var jobs []config.Job
	for _, name := range []string{"a", "b", "c", "d"} {
		jobs = append(jobs, cleanJob(name, filepath.Join(root, name)))
	}
	fake := &fakeOperator{delay: 50 * time.Millisecond}

	results, err := NewRunner(fake, 2).Run(testContext(t), &config.Config{Jobs: jobs})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, results[i].Job, "results keep job order")
	}
	assert.Len(t, fake.calls, 4)
	assert.LessOrEqual(t, fake.peak.Load(), int32(2))
}

func TestRunnerParallelRefusesOverlap(t *testing.T) {
	root := tempDir(t)
	tests := []struct {
		name string
		jobs []config.Job
	}{
		{
			name: "nested_dirs",
			jobs: []config.Job{cleanJob("outer", root), cleanJob("inner", filepath.Join(root, "sub"))},
		},
		{
			name: "backup_dest_is_clean_dir",
			jobs: []config.Job{
				{Name: "backup", Backup: &config.BackupJob{Source: filepath.Join(root, "src"), Dest: filepath.Join(root, "out")}},
				cleanJob("prune", filepath.Join(root, "out")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOperator{}
			_, err := NewRunner(fake, 4).Run(testContext(t), &config.Config{Jobs: tt.jobs})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOverlappingJobs))
			assert.Empty(t, fake.calls, "nothing runs when the plan is refused")

			_, err = NewRunner(fake, 1).Run(testContext(t), &config.Config{Jobs: tt.jobs})
			assert.NoError(t, err, "sequential runs accept overlapping jobs")
		})
	}
}

func TestRunnerCancelled(t *testing.T) {
	root := tempDir(t)
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	fake := &fakeOperator{}

	results, err := NewRunner(fake, 1).Run(ctx, &config.Config{Jobs: []config.Job{cleanJob("a", filepath.Join(root, "a"))}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Empty(t, fake.calls)
}

func TestRunnerWithOperator(t *testing.T) {
	ctx := testContext(t)
	root := tempDir(t)
	writeFiles(t, root, "inbox/a.pdf")
	op := newOperator(t, nil)

	results, err := NewRunner(op, 1).Run(ctx, &config.Config{Jobs: []config.Job{
		{Name: "sort", Organize: &config.OrganizeJob{Dir: filepath.Join(root, "inbox")}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Result.Processed)
}
